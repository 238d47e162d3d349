// File: internal/browser/actions_test.go
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPage satisfies Page with a per-test evaluate handler. Navigation
// and probes are recorded; results come from the handler.
type scriptedPage struct {
	mu       sync.Mutex
	evaluate func(script string) (any, error)
	scripts  []string
	loads    chan struct{}
}

func newScriptedPage(evaluate func(script string) (any, error)) *scriptedPage {
	return &scriptedPage{evaluate: evaluate, loads: make(chan struct{}, 4)}
}

func (p *scriptedPage) Navigate(context.Context, string) error { return nil }

func (p *scriptedPage) Location(context.Context) (string, error) { return "", nil }

func (p *scriptedPage) Evaluate(_ context.Context, script string, out any) error {
	p.mu.Lock()
	p.scripts = append(p.scripts, script)
	p.mu.Unlock()

	v, err := p.evaluate(script)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *scriptedPage) HasElement(context.Context, string) (bool, error) { return false, nil }

func (p *scriptedPage) LoadEvents() <-chan struct{} { return p.loads }

func (p *scriptedPage) scriptCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.scripts)
}

func TestClickByTextEncodesTarget(t *testing.T) {
	page := newScriptedPage(func(script string) (any, error) {
		// Whitespace inside the target must be stripped before matching,
		// and the target must arrive JSON-quoted.
		assert.Contains(t, script, `("Quarter1")`)
		return true, nil
	})

	ok, err := ClickByText(context.Background(), page, "Quarter 1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClickByTextNotFound(t *testing.T) {
	page := newScriptedPage(func(string) (any, error) { return false, nil })
	ok, err := ClickByText(context.Background(), page, "あとで回答する")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPollUntilSucceedsAfterRetries(t *testing.T) {
	var calls int
	page := newScriptedPage(func(string) (any, error) {
		calls++
		return calls >= 3, nil
	})

	ok, err := PollUntil(context.Background(), page, "predicate()", time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestPollUntilTimesOut(t *testing.T) {
	page := newScriptedPage(func(string) (any, error) { return false, nil })

	start := time.Now()
	ok, err := PollUntil(context.Background(), page, "predicate()", 20*time.Millisecond, time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPollUntilHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	page := newScriptedPage(func(string) (any, error) {
		cancel()
		return false, nil
	})

	_, err := PollUntil(ctx, page, "predicate()", time.Minute, time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	// Cancellation is observed on the first re-arm, not after a full timeout.
	assert.Equal(t, 1, page.scriptCount())
}

func TestPollUntilPropagatesEvaluateError(t *testing.T) {
	boom := errors.New("target crashed")
	page := newScriptedPage(func(string) (any, error) { return nil, boom })

	_, err := PollUntil(context.Background(), page, "predicate()", time.Second, time.Millisecond)
	assert.ErrorIs(t, err, boom)
}

func TestFillAndSubmitOutcomes(t *testing.T) {
	form := FormFill{
		Fields:      map[string]string{"#username": "2437109t", "#password": "pw"},
		Submit:      "button[type='submit']",
		ErrorBanner: ".form-error",
	}

	cases := []struct {
		name   string
		result string
		expect SubmitOutcome
	}{
		{name: "submitted", result: "submitted", expect: Submitted},
		{name: "auth error", result: "auth_error", expect: AuthError},
		{name: "not found", result: "not_found", expect: FormNotFound},
		{name: "unexpected result maps to not found", result: "garbage", expect: FormNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page := newScriptedPage(func(script string) (any, error) {
				assert.Contains(t, script, `"#username"`)
				assert.Contains(t, script, `".form-error"`)
				return tc.result, nil
			})
			got, err := FillAndSubmit(context.Background(), page, form)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, got)
		})
	}
}

func TestFillAndSubmitEvaluateError(t *testing.T) {
	boom := errors.New("page went away")
	page := newScriptedPage(func(string) (any, error) { return nil, boom })

	_, err := FillAndSubmit(context.Background(), page, FormFill{Submit: "#go"})
	assert.ErrorIs(t, err, boom)
}

func TestElementExistsScript(t *testing.T) {
	script := ElementExistsScript("#schedule-calendar")
	assert.Equal(t, `!!document.querySelector("#schedule-calendar")`, script)
}

func TestTextExistsScriptStripsWhitespace(t *testing.T) {
	script := TextExistsScript("Quarter 2")
	assert.Contains(t, script, `("Quarter2")`)
	assert.False(t, strings.Contains(script, "el.click()"))
}

func TestSubmitOutcomeString(t *testing.T) {
	assert.Equal(t, "Submitted", Submitted.String())
	assert.Equal(t, "FormNotFound", FormNotFound.String())
	assert.Equal(t, "AuthError", AuthError.String())
	assert.Equal(t, "Unknown", SubmitOutcome(42).String())
}

// File: internal/browser/actions.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// SubmitOutcome is the result of a FillAndSubmit attempt.
type SubmitOutcome int

const (
	// Submitted means every field was filled and the submit control clicked.
	Submitted SubmitOutcome = iota
	// FormNotFound means at least one field selector matched nothing, which
	// usually means the form has not rendered yet.
	FormNotFound
	// AuthError means the page is showing its credential-rejection banner.
	AuthError
)

func (o SubmitOutcome) String() string {
	switch o {
	case Submitted:
		return "Submitted"
	case FormNotFound:
		return "FormNotFound"
	case AuthError:
		return "AuthError"
	}
	return "Unknown"
}

// FormFill describes one form-submission attempt.
type FormFill struct {
	// Fields maps field selectors to the values to set.
	Fields map[string]string
	// Submit is the selector of the control that submits the form.
	Submit string
	// ErrorBanner, when present on the page, means the previous attempt was
	// rejected and the form is being redisplayed.
	ErrorBanner string
}

// Evaluate runs a script and decodes its serializable result as T.
func Evaluate[T any](ctx context.Context, p Page, script string) (T, error) {
	var out T
	if err := p.Evaluate(ctx, script, &out); err != nil {
		return out, err
	}
	return out, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalizeText(s string) string {
	return whitespaceRun.ReplaceAllString(s, "")
}

// clickByTextScript walks a fixed tag allow-list and clicks the first element
// whose whitespace-stripped text contains the target. Visibility is
// deliberately not required: the recognized portal hides some actionable
// elements behind custom styling, and their click handlers still fire.
const clickByTextScript = `
((target) => {
  const tags = ['a', 'button', 'input', 'div', 'span', 'li', 'td', 'label'];
  for (const tag of tags) {
    for (const el of document.getElementsByTagName(tag)) {
      const text = (el.textContent || el.value || '').replace(/\s+/g, '');
      if (text && text.includes(target)) {
        el.click();
        return true;
      }
    }
  }
  return false;
})(%s)`

// ClickByText clicks the first element whose normalized text contains target.
// Returns whether an element was found and clicked.
func ClickByText(ctx context.Context, p Page, target string) (bool, error) {
	encoded, err := json.Marshal(normalizeText(target))
	if err != nil {
		return false, err
	}
	return Evaluate[bool](ctx, p, fmt.Sprintf(clickByTextScript, encoded))
}

// PollUntil re-evaluates predicateScript (which must return a boolean) every
// interval until it reports true or timeout elapses. Cancellation is checked
// before each re-arm; the false return with a nil error means the predicate
// never became true within the timeout.
func PollUntil(ctx context.Context, p Page, predicateScript string, timeout, interval time.Duration) (bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		ok, err := Evaluate[bool](ctx, p, predicateScript)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-tick.C:
		}
	}
}

// ElementExistsScript builds a PollUntil predicate for selector presence.
func ElementExistsScript(selector string) string {
	return fmt.Sprintf(`!!document.querySelector(%q)`, selector)
}

// textExistsScript mirrors clickByTextScript's matching rules without the
// click, for use as a PollUntil predicate.
const textExistsScript = `
((target) => {
  const tags = ['a', 'button', 'input', 'div', 'span', 'li', 'td', 'label'];
  for (const tag of tags) {
    for (const el of document.getElementsByTagName(tag)) {
      const text = (el.textContent || el.value || '').replace(/\s+/g, '');
      if (text && text.includes(target)) {
        return true;
      }
    }
  }
  return false;
})(%s)`

// TextExistsScript builds a PollUntil predicate that becomes true once any
// allow-listed element's normalized text contains target.
func TextExistsScript(target string) string {
	encoded, _ := json.Marshal(normalizeText(target))
	return fmt.Sprintf(textExistsScript, encoded)
}

// fillAndSubmitScript fills each field and clicks submit in a single page
// round trip. Values are set through the native setter and followed by input
// and change events because the portal's framework-bound fields only register
// values delivered through events, not raw assignment.
const fillAndSubmitScript = `
((fields, submitSel, bannerSel) => {
  if (bannerSel && document.querySelector(bannerSel)) {
    return 'auth_error';
  }
  for (const sel of Object.keys(fields)) {
    if (!document.querySelector(sel)) {
      return 'not_found';
    }
  }
  const submit = document.querySelector(submitSel);
  if (!submit) {
    return 'not_found';
  }
  for (const [sel, value] of Object.entries(fields)) {
    const el = document.querySelector(sel);
    const setter = Object.getOwnPropertyDescriptor(
      Object.getPrototypeOf(el), 'value')?.set;
    if (setter) {
      setter.call(el, value);
    } else {
      el.value = value;
    }
    el.dispatchEvent(new Event('input', {bubbles: true}));
    el.dispatchEvent(new Event('change', {bubbles: true}));
  }
  submit.click();
  return 'submitted';
})(%s, %s, %s)`

// FillAndSubmit fills the identified form's fields and submits it.
func FillAndSubmit(ctx context.Context, p Page, form FormFill) (SubmitOutcome, error) {
	fields, err := json.Marshal(form.Fields)
	if err != nil {
		return FormNotFound, err
	}
	submit, err := json.Marshal(form.Submit)
	if err != nil {
		return FormNotFound, err
	}
	banner, err := json.Marshal(form.ErrorBanner)
	if err != nil {
		return FormNotFound, err
	}

	result, err := Evaluate[string](ctx, p, fmt.Sprintf(fillAndSubmitScript, fields, submit, banner))
	if err != nil {
		return FormNotFound, err
	}
	switch result {
	case "submitted":
		return Submitted, nil
	case "auth_error":
		return AuthError, nil
	default:
		return FormNotFound, nil
	}
}

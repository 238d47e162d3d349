// File: internal/portal/normalize_test.go
package portal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDeadline(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "canonical passes through", input: "2025/12/03 13:00:00", expect: "2025/12/03 13:00:00"},
		{name: "minute precision", input: "2025/12/03 13:00", expect: "2025/12/03 13:00:00"},
		{name: "dashed seconds", input: "2025-12-03 13:00:00", expect: "2025/12/03 13:00:00"},
		{name: "iso", input: "2025-12-03T13:00:00", expect: "2025/12/03 13:00:00"},
		{name: "japanese long form", input: "2025年12月03日 13時00分", expect: "2025/12/03 13:00:00"},
		{name: "surrounding whitespace", input: "  2025/12/03 13:00:00  ", expect: "2025/12/03 13:00:00"},
		{name: "unparseable passes through unchanged", input: "提出期限未定", expect: "提出期限未定"},
		{name: "empty", input: "", expect: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeDeadline(tc.input)
			assert.Equal(t, tc.expect, got)
			// Normalization must be idempotent for every input.
			assert.Equal(t, got, NormalizeDeadline(got))
		})
	}
}

func TestNormalizeDeadlineUsesFixedTimezone(t *testing.T) {
	// The emitted string carries no offset, so the only observable contract
	// is that parsing happens in the portal's zone.
	parsed, err := time.ParseInLocation(CanonicalDeadlineLayout, NormalizeDeadline("2025-12-03T13:00:00"), Location)
	require.NoError(t, err)
	assert.Equal(t, 13, parsed.Hour())
	assert.Equal(t, "Asia/Tokyo", parsed.Location().String())
}

func TestNormalizeRoom(t *testing.T) {
	cases := []struct {
		input  string
		expect string
	}{
		{input: "Ａ１０１", expect: "A101"},
		{input: "  講義棟　２０３  ", expect: "講義棟 203"},
		{input: "B 302", expect: "B 302"},
		{input: "", expect: ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expect, NormalizeRoom(tc.input), "input %q", tc.input)
	}
}

func TestAcademicYearOf(t *testing.T) {
	cases := []struct {
		moment time.Time
		expect int
	}{
		{moment: time.Date(2025, time.April, 1, 0, 0, 0, 0, Location), expect: 2025},
		{moment: time.Date(2026, time.March, 31, 23, 59, 0, 0, Location), expect: 2025},
		{moment: time.Date(2026, time.August, 30, 12, 0, 0, 0, Location), expect: 2026},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expect, AcademicYearOf(tc.moment))
	}
}

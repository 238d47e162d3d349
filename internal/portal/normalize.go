// File: internal/portal/normalize.go
package portal

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// Location is the fixed timezone every deadline is parsed and emitted in.
// Servers can end up in arbitrary zones, which would skew Year()/Day()
// arithmetic on parsed deadlines, so the portal's zone is forced here.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		panic(err)
	}
}

// CanonicalDeadlineLayout is the single emitted deadline format.
const CanonicalDeadlineLayout = "2006/01/02 15:04:05"

// deadlineLayouts are tried in order. The canonical layout is first so that
// normalization is idempotent.
var deadlineLayouts = []string{
	CanonicalDeadlineLayout,
	"2006/01/02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006年01月02日 15時04分",
}

// NormalizeDeadline folds any supported portal date string into the canonical
// layout. Unparseable input is returned unchanged: a human eventually reads
// the deadline, so passing the original string through beats dropping the row.
func NormalizeDeadline(s string) string {
	trimmed := strings.TrimSpace(width.Narrow.String(s))
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, Location); err == nil {
			return t.In(Location).Format(CanonicalDeadlineLayout)
		}
	}
	return s
}

// AcademicYearOf returns the academic year a moment belongs to. The portal's
// academic year starts in April, so January through March count toward the
// previous calendar year.
func AcademicYearOf(t time.Time) int {
	t = t.In(Location)
	if t.Month() < time.April {
		return t.Year() - 1
	}
	return t.Year()
}

var spaceRun = regexp.MustCompile(`\s+`)

// NormalizeRoom folds full-width characters to half-width and collapses
// whitespace. The portal mixes encodings between the timetable grid and the
// calendar view, so both sides of the room join go through this.
func NormalizeRoom(s string) string {
	folded := width.Narrow.String(s)
	return strings.TrimSpace(spaceRun.ReplaceAllString(folded, " "))
}

// normalizeSubject lowers and strips a subject/title for fuzzy comparison.
func normalizeSubject(s string) string {
	folded := width.Narrow.String(s)
	folded = strings.ToLower(strings.TrimSpace(folded))
	return spaceRun.ReplaceAllString(folded, "")
}

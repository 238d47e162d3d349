// File: internal/portal/merge.go
package portal

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// subjectSimilarityThreshold accepts near-matches when neither normalized
// string contains the other (the calendar often truncates long titles).
const subjectSimilarityThreshold = 0.88

// BackfillRooms copies room values from schedule events onto timetable
// records that lack one. The two sources share no primary key, so the join is
// deliberately fuzzy: same period plus a substring match between normalized
// subject and title, with a Jaro-Winkler fallback for truncated names.
func BackfillRooms(records []TimetableRecord, events []ScheduleEvent) []TimetableRecord {
	out := make([]TimetableRecord, len(records))
	copy(out, records)

	for i := range out {
		if out[i].Room != "" {
			continue
		}
		title := normalizeSubject(out[i].Title)
		if title == "" {
			continue
		}
		for _, ev := range events {
			if ev.Room == "" || ev.Period != out[i].Period {
				continue
			}
			if subjectsMatch(title, normalizeSubject(ev.Subject)) {
				out[i].Room = NormalizeRoom(ev.Room)
				break
			}
		}
	}
	return out
}

func subjectsMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return matchr.JaroWinkler(a, b, true) >= subjectSimilarityThreshold
}

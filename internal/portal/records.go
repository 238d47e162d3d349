// File: internal/portal/records.go
package portal

// AssignmentRecord is one row of the portal's task list. URL is the identity
// key; Deadline is kept as the raw portal string until normalization.
type AssignmentRecord struct {
	Course   string `json:"course"`
	Title    string `json:"title"`
	Deadline string `json:"deadline"`
	URL      string `json:"url"`
}

// TimetableRecord is one cell of the per-quarter timetable grid.
// Identity key: Code + Day + Period.
type TimetableRecord struct {
	Code    string `json:"code"`
	Day     string `json:"day"`
	Period  int    `json:"period"`
	Teacher string `json:"teacher"`
	Title   string `json:"title"`
	Room    string `json:"room,omitempty"`
	Quarter int    `json:"quarter"`
}

// ScheduleEvent is one entry of a monthly calendar cell. It carries no
// primary key; it exists only to backfill rooms onto timetable records
// through a fuzzy period+subject join.
type ScheduleEvent struct {
	Date    string `json:"date,omitempty"`
	Period  int    `json:"period,omitempty"`
	Subject string `json:"subject,omitempty"`
	Room    string `json:"room,omitempty"`
}

// weekdays the portal's timetable grid covers.
var timetableDays = map[string]bool{
	"月": true, "火": true, "水": true, "木": true, "金": true,
}

const (
	minPeriod = 1
	maxPeriod = 5
)

// FilterAssignments drops rows missing a required field and deduplicates on
// URL, preserving first occurrence. Deadlines are canonicalized where
// parseable and passed through otherwise.
func FilterAssignments(rows []AssignmentRecord) []AssignmentRecord {
	seen := make(map[string]bool, len(rows))
	out := make([]AssignmentRecord, 0, len(rows))
	for _, r := range rows {
		if r.Title == "" || r.Deadline == "" || r.URL == "" {
			continue
		}
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		r.Deadline = NormalizeDeadline(r.Deadline)
		out = append(out, r)
	}
	return out
}

// FilterTimetable drops rows missing the identity fields or falling outside
// the fixed 5x5 grid, and tags survivors with the given quarter.
func FilterTimetable(rows []TimetableRecord, quarter int) []TimetableRecord {
	out := make([]TimetableRecord, 0, len(rows))
	for _, r := range rows {
		if r.Code == "" || r.Title == "" {
			continue
		}
		if !timetableDays[r.Day] {
			continue
		}
		if r.Period < minPeriod || r.Period > maxPeriod {
			continue
		}
		r.Room = NormalizeRoom(r.Room)
		r.Quarter = quarter
		out = append(out, r)
	}
	return out
}

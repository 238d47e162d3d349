// File: internal/scraper/session.go
package scraper

import (
	"time"

	"github.com/google/uuid"

	"github.com/aonoki/unifetch/internal/portal"
)

// Credentials authenticate one session against the portal. They are supplied
// per fetch and never persisted by the engine.
type Credentials struct {
	Identifier string
	Secret     string
}

// Validate fails fast before a session starts rather than mid-pipeline.
func (c Credentials) Validate() error {
	if c.Identifier == "" || c.Secret == "" {
		return ErrInvalidCredentials
	}
	return nil
}

// TimetableParams select what the timetable pipeline scrapes.
type TimetableParams struct {
	// Quarters is the ordered list of quarter tabs to visit (values 1..4).
	Quarters []int
	// AcademicYear keys the persisted result; zero means the current year.
	AcademicYear int
	// WindowFrom/WindowTo bound which calendar events participate in the
	// room backfill. Zero values disable the filter.
	WindowFrom time.Time
	WindowTo   time.Time
}

// Session is the single mutable state of one run: current page state,
// credentials, parameters, the record accumulator, and per-action attempt
// counters. It is owned exclusively by the orchestrator; created when a fetch
// starts and discarded when the completion resolves.
type Session struct {
	ID    string
	State portal.PageState

	Creds  Credentials
	Params TimetableParams

	// Accumulators; append-only during a run, consumed whole at finalization.
	Assignments []portal.AssignmentRecord
	Timetable   []portal.TimetableRecord
	Events      []portal.ScheduleEvent

	// quarterIdx is the timetable pipeline's position in Params.Quarters.
	quarterIdx int

	// loginSubmitted flips once credentials have been posted. A login form
	// seen again after that is a redirect still in flight, not a request to
	// submit again.
	loginSubmitted bool

	attempts map[string]int
}

func newSession(creds Credentials, params TimetableParams) *Session {
	return &Session{
		ID:       uuid.New().String(),
		State:    portal.StateUnknown,
		Creds:    creds,
		Params:   params,
		attempts: make(map[string]int),
	}
}

// attempt consumes one try of the named bounded action and reports whether
// the budget still allows it.
func (s *Session) attempt(action string, budget int) bool {
	s.attempts[action]++
	return s.attempts[action] <= budget
}

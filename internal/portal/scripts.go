// File: internal/portal/scripts.go
package portal

import "fmt"

// Per-page-state extraction scripts. Each script runs in the page context and
// returns an array of flat objects; the Go side decodes and filters them.
// Scripts read defensively (missing cells yield empty strings) so a single
// malformed row never throws and kills the whole extraction.

// TaskListScript pulls assignment rows out of the LMS task list table.
const TaskListScript = `
(() => {
  const rows = document.querySelectorAll('#tasklist-table tbody tr');
  const out = [];
  for (const row of rows) {
    const link = row.querySelector('td.task-title a');
    out.push({
      course:   (row.querySelector('td.task-course')?.textContent || '').trim(),
      title:    (link?.textContent || '').trim(),
      deadline: (row.querySelector('td.task-deadline')?.textContent || '').trim(),
      url:      link?.href || '',
    });
  }
  return out;
})()`

// TimetableScript pulls one quarter's worth of timetable cells. The grid is a
// table whose columns are weekdays and rows are periods; each populated cell
// carries data attributes written by the portal's own renderer.
const TimetableScript = `
(() => {
  const cells = document.querySelectorAll('#timetable-grid td.lesson-cell');
  const out = [];
  for (const cell of cells) {
    out.push({
      code:    cell.dataset.lessonCode || '',
      day:     cell.dataset.day || '',
      period:  parseInt(cell.dataset.period, 10) || 0,
      teacher: (cell.querySelector('.lesson-teacher')?.textContent || '').trim(),
      title:   (cell.querySelector('.lesson-title')?.textContent || '').trim(),
      room:    (cell.querySelector('.lesson-room')?.textContent || '').trim(),
    });
  }
  return out;
})()`

// ScheduleScript pulls the currently displayed month of calendar events.
// Month-navigation controls exist in this DOM but only the visible month is
// scraped per run; the calendar is read solely to backfill rooms.
const ScheduleScript = `
(() => {
  const items = document.querySelectorAll('#schedule-calendar .cal-cell .cal-event');
  const out = [];
  for (const item of items) {
    out.push({
      date:    item.closest('.cal-cell')?.dataset.date || '',
      period:  parseInt(item.dataset.period, 10) || 0,
      subject: (item.querySelector('.event-subject')?.textContent || '').trim(),
      room:    (item.querySelector('.event-room')?.textContent || '').trim(),
    });
  }
  return out;
})()`

// QuarterTabLabel is the visible label of a quarter tab.
func QuarterTabLabel(quarter int) string {
	return fmt.Sprintf("%s %d", TimetableTabText, quarter)
}

// Selectors for the shared login sub-flow.
const (
	LoginUserSelector   = "#username"
	LoginPassSelector   = "#password"
	LoginSubmitSelector = "button[type='submit']"
	// LoginErrorBanner distinguishes a rejected credential pair from a form
	// that simply has not rendered yet.
	LoginErrorBanner = ".form-error, #login-error"

	// TimetableTabText is the visible label prefix of each quarter tab;
	// the quarter number is appended ("第1クォーター" etc. are rendered
	// with this latin fallback label as well).
	TimetableTabText = "Quarter"

	// CalendarRootSelector marks the schedule calendar as rendered.
	CalendarRootSelector = "#schedule-calendar"

	// SurveyDismissText is the label of the interstitial's skip control. The
	// portal hides it behind custom styling, which is why clicking must not
	// require visibility.
	SurveyDismissText = "あとで回答する"
)

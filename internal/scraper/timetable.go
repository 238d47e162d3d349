// File: internal/scraper/timetable.go
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/aonoki/unifetch/internal/browser"
	"github.com/aonoki/unifetch/internal/portal"
)

// quarterTabWait bounds how long the pipeline waits for a quarter tab to
// appear before the run is declared stuck.
const quarterTabWait = 10 * time.Second

// timetablePipeline is the long flow with an internal loop:
// login -> survey/home dismissal -> per-quarter tab switch + extract ->
// schedule calendar -> room backfill -> done.
type timetablePipeline struct {
	o *Orchestrator
}

func (p *timetablePipeline) name() string { return "timetable" }

func (p *timetablePipeline) timeout() time.Duration {
	return p.o.cfg.TimetableTimeout
}

func (p *timetablePipeline) dispatch(ctx context.Context, sess *Session, state portal.PageState) (stageResult, error) {
	switch state {
	case portal.StateLoginForm:
		return p.o.handleLogin(ctx, sess)

	case portal.StateSsoChallenge:
		return stageWait, nil

	case portal.StateSurveyInterstitial:
		if _, err := browser.ClickByText(ctx, p.o.page, portal.SurveyDismissText); err != nil {
			return stageWait, fmt.Errorf("%w: survey dismissal: %v", ErrParsingFailed, err)
		}
		return stageWait, nil

	case portal.StatePortalHome:
		if err := p.o.page.Navigate(ctx, p.o.timetableURL()); err != nil {
			return stageWait, fmt.Errorf("%w: opening timetable: %v", ErrNavigationFailed, err)
		}
		return stageWait, nil

	case portal.StateTimetableQuarterView:
		return p.handleQuarter(ctx, sess)

	case portal.StateScheduleCalendarView:
		return p.handleSchedule(ctx, sess)

	default:
		return stageWait, nil
	}
}

// handleQuarter visits the next requested quarter tab: wait for the tab,
// click it, let the grid re-render (an in-page change, no load event fires),
// extract, and tag the rows with the quarter number. Once the requested list
// is exhausted it moves on to the schedule calendar.
func (p *timetablePipeline) handleQuarter(ctx context.Context, sess *Session) (stageResult, error) {
	if sess.quarterIdx >= len(sess.Params.Quarters) {
		if err := p.o.page.Navigate(ctx, p.o.scheduleURL()); err != nil {
			return stageWait, fmt.Errorf("%w: opening schedule: %v", ErrNavigationFailed, err)
		}
		return stageWait, nil
	}

	quarter := sess.Params.Quarters[sess.quarterIdx]
	tabLabel := portal.QuarterTabLabel(quarter)

	found, err := browser.PollUntil(ctx, p.o.page,
		browser.TextExistsScript(tabLabel), quarterTabWait, p.o.cfg.PollInterval)
	if err != nil {
		return stageWait, fmt.Errorf("%w: waiting for %q tab: %v", ErrParsingFailed, tabLabel, err)
	}
	if !found {
		return stageWait, fmt.Errorf("%w: quarter tab %q never appeared", ErrNavigationFailed, tabLabel)
	}

	clicked, err := browser.ClickByText(ctx, p.o.page, tabLabel)
	if err != nil {
		return stageWait, fmt.Errorf("%w: switching to %q: %v", ErrParsingFailed, tabLabel, err)
	}
	if !clicked {
		return stageWait, fmt.Errorf("%w: quarter tab %q not clickable", ErrNavigationFailed, tabLabel)
	}

	// Tab switches re-render in place; give the grid its settle time.
	if err := sleep(ctx, p.o.cfg.SettleDelay); err != nil {
		return stageWait, err
	}

	rows, err := browser.Evaluate[[]portal.TimetableRecord](ctx, p.o.page, portal.TimetableScript)
	if err != nil {
		return stageWait, fmt.Errorf("%w: timetable extraction: %v", ErrParsingFailed, err)
	}
	sess.Timetable = append(sess.Timetable, portal.FilterTimetable(rows, quarter)...)
	sess.quarterIdx++
	return stageAgain, nil
}

// handleSchedule extracts the currently displayed calendar month and
// finalizes. Month-navigation controls exist in the DOM but only the visible
// month is scraped per run; the calendar exists solely to backfill rooms.
func (p *timetablePipeline) handleSchedule(ctx context.Context, sess *Session) (stageResult, error) {
	ready, err := browser.PollUntil(ctx, p.o.page,
		browser.ElementExistsScript(portal.CalendarRootSelector), quarterTabWait, p.o.cfg.PollInterval)
	if err != nil {
		return stageWait, fmt.Errorf("%w: waiting for calendar: %v", ErrParsingFailed, err)
	}
	if !ready {
		return stageWait, fmt.Errorf("%w: schedule calendar never rendered", ErrNavigationFailed)
	}

	events, err := browser.Evaluate[[]portal.ScheduleEvent](ctx, p.o.page, portal.ScheduleScript)
	if err != nil {
		return stageWait, fmt.Errorf("%w: schedule extraction: %v", ErrParsingFailed, err)
	}
	sess.Events = filterWindow(events, sess.Params.WindowFrom, sess.Params.WindowTo)

	sess.Timetable = portal.BackfillRooms(sess.Timetable, sess.Events)
	return stageDone, nil
}

// filterWindow keeps events whose date falls inside the caller's window.
// Events without a parseable date are kept: an undated room hint is still a
// room hint.
func filterWindow(events []portal.ScheduleEvent, from, to time.Time) []portal.ScheduleEvent {
	if from.IsZero() && to.IsZero() {
		return events
	}
	out := make([]portal.ScheduleEvent, 0, len(events))
	for _, ev := range events {
		d, err := time.ParseInLocation("2006/01/02", ev.Date, portal.Location)
		if err != nil {
			out = append(out, ev)
			continue
		}
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !to.IsZero() && d.After(to) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

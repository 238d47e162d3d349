// File: internal/scraper/orchestrator.go
// Description: The session state machine at the core of the engine. One
// orchestrator owns one browser page and at most one in-flight fetch; it
// drives navigate -> classify -> act -> advance until a terminal state, under
// a global watchdog.
package scraper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aonoki/unifetch/internal/browser"
	"github.com/aonoki/unifetch/internal/config"
	"github.com/aonoki/unifetch/internal/portal"
)

// stageResult tells the drive loop what an action did to the page.
type stageResult int

const (
	// stageWait: the action caused (or awaits) a navigation; resume on the
	// next page-load event.
	stageWait stageResult = iota
	// stageAgain: the action only mutated in-page state (tab switch, poll
	// retry); re-dispatch immediately without waiting for a load event.
	stageAgain
	// stageDone: terminal success; the accumulator is complete.
	stageDone
)

// pipeline binds classified page states to actions for one fetch kind.
type pipeline interface {
	name() string
	timeout() time.Duration
	dispatch(ctx context.Context, sess *Session, state portal.PageState) (stageResult, error)
}

// completion is the single pending handle of a fetch call. resolve is
// structurally at-most-once: the sync.Once drops every resolution after the
// first, so a late watchdog or page-load event can never double-complete.
type completion struct {
	once sync.Once
	ch   chan error
}

func newCompletion() *completion {
	return &completion{ch: make(chan error, 1)}
}

func (c *completion) resolve(err error) {
	c.once.Do(func() { c.ch <- err })
}

// Orchestrator drives one browser through the recognized portal flows.
// Concurrent fetches on the same instance are rejected, not queued.
type Orchestrator struct {
	page       browser.Page
	classifier portal.Classifier
	cfg        config.ScraperConfig
	baseURL    string
	logger     *zap.Logger

	running atomic.Bool
	// limiter paces reloads while the classifier reports an unrecognized
	// page, so a redirect storm cannot burn the retry budget instantly.
	limiter *rate.Limiter
}

// New wires an orchestrator over an already-started page.
func New(page browser.Page, classifier portal.Classifier, cfg config.ScraperConfig, portalCfg config.PortalConfig, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		page:       page,
		classifier: classifier,
		cfg:        cfg,
		baseURL:    portalCfg.BaseURL,
		logger:     logger.Named("scraper"),
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Portal paths the pipelines navigate to once authenticated.
func (o *Orchestrator) taskListURL() string  { return o.baseURL + "/lms/tasklist" }
func (o *Orchestrator) timetableURL() string { return o.baseURL + "/lms/timetable" }
func (o *Orchestrator) scheduleURL() string  { return o.baseURL + "/schedule/monthly" }

// FetchAssignments runs the short pipeline and returns the filtered,
// deadline-normalized assignment list.
func (o *Orchestrator) FetchAssignments(ctx context.Context, creds Credentials) ([]portal.AssignmentRecord, error) {
	sess := newSession(creds, TimetableParams{})
	if err := o.run(ctx, sess, &assignmentPipeline{o: o}); err != nil {
		return nil, err
	}
	return sess.Assignments, nil
}

// FetchTimetable runs the long pipeline: per-quarter grid extraction followed
// by the calendar room backfill.
func (o *Orchestrator) FetchTimetable(ctx context.Context, creds Credentials, params TimetableParams) ([]portal.TimetableRecord, error) {
	sess := newSession(creds, params)
	if err := o.run(ctx, sess, &timetablePipeline{o: o}); err != nil {
		return nil, err
	}
	return sess.Timetable, nil
}

// run guards single-flight, validates fail-fast conditions, starts the
// watchdog, and waits for exactly one resolution of the pending completion.
func (o *Orchestrator) run(ctx context.Context, sess *Session, p pipeline) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer o.running.Store(false)

	if err := sess.Creds.Validate(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	log := o.logger.With(zap.String("session_id", sess.ID), zap.String("pipeline", p.name()))
	log.Info("Fetch started", zap.Duration("watchdog", p.timeout()))

	done := newCompletion()
	go func() {
		done.resolve(o.drive(runCtx, log, sess, p))
	}()

	var err error
	select {
	case err = <-done.ch:
	case <-runCtx.Done():
		// Watchdog (or caller cancellation) force-fails the pending call.
		// The drive goroutine sees the dead context at its next suspension
		// point and its late resolution is dropped by the completion guard.
		err = o.mapCtx(ctx, runCtx)
	}

	if err != nil {
		log.Warn("Fetch failed", zap.Error(err))
		return err
	}
	log.Info("Fetch finished")
	return nil
}

// mapCtx distinguishes the watchdog firing from the caller walking away.
func (o *Orchestrator) mapCtx(parent, run context.Context) error {
	if parent.Err() != nil {
		return ErrCancelled
	}
	if run.Err() == context.DeadlineExceeded {
		return ErrTimeout
	}
	return ErrCancelled
}

// drive is the page-load loop: classify the current page, dispatch the
// pipeline's action for it, and advance until a terminal state.
func (o *Orchestrator) drive(ctx context.Context, log *zap.Logger, sess *Session, p pipeline) error {
	// Loading the portal root re-initializes navigation state; the browser
	// profile is ephemeral, so this always lands on the login flow.
	if err := o.page.Navigate(ctx, o.baseURL); err != nil {
		if ctx.Err() != nil {
			return o.mapCtx(ctx, ctx)
		}
		return fmt.Errorf("%w: initial navigation: %v", ErrNavigationFailed, err)
	}

	for {
		if ctx.Err() != nil {
			return o.mapCtx(ctx, ctx)
		}

		loc, err := o.page.Location(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return o.mapCtx(ctx, ctx)
			}
			return fmt.Errorf("%w: reading location: %v", ErrNavigationFailed, err)
		}

		// The contact-info interjection is encoded as the classifier's first
		// rule, so it wins regardless of the pipeline's expected stage.
		state := o.classifier.Classify(ctx, loc, o.page)
		sess.State = state
		log.Debug("Classified page", zap.String("url", loc), zap.Stringer("state", state))

		if state == portal.StateContactInfoConfirmation {
			return ErrContactInfoCheckRequired
		}

		if state == portal.StateUnknown {
			if !sess.attempt("unknown-page", o.cfg.UnknownPageBudget) {
				return fmt.Errorf("%w: stuck on unrecognized page %q", ErrNavigationFailed, loc)
			}
			if err := o.limiter.Wait(ctx); err != nil {
				return o.mapCtx(ctx, ctx)
			}
			if err := o.waitLoad(ctx); err != nil {
				return err
			}
			continue
		}

		res, err := p.dispatch(ctx, sess, state)
		if err != nil {
			if ctx.Err() != nil {
				return o.mapCtx(ctx, ctx)
			}
			return err
		}

		switch res {
		case stageDone:
			return nil
		case stageAgain:
			continue
		case stageWait:
			if err := o.waitLoad(ctx); err != nil {
				return err
			}
		}
	}
}

// waitLoad blocks until the next page-load event. Some portal transitions
// never fire one (in-page re-renders), so a re-probe timer bounds the wait
// and sends the loop back through classification.
func (o *Orchestrator) waitLoad(ctx context.Context) error {
	reprobe := time.NewTimer(4 * o.cfg.PollInterval)
	defer reprobe.Stop()

	select {
	case <-ctx.Done():
		return o.mapCtx(ctx, ctx)
	case <-o.page.LoadEvents():
		return nil
	case <-reprobe.C:
		return nil
	}
}

// handleLogin fills and submits the login form. Shared by both pipelines:
// from the caller's perspective the whole SSO redirect chain is one logical
// login stage.
func (o *Orchestrator) handleLogin(ctx context.Context, sess *Session) (stageResult, error) {
	if sess.loginSubmitted {
		// A slow IdP redirect can outlast the re-probe timer and re-present
		// the form. Posting the credentials again would double-submit; the
		// rejection banner is the only actionable signal on a re-seen form.
		found, err := o.page.HasElement(ctx, portal.LoginErrorBanner)
		if err != nil {
			return stageWait, fmt.Errorf("%w: login banner probe: %v", ErrParsingFailed, err)
		}
		if found {
			return stageWait, &LoginError{Reason: "portal rejected the supplied credentials"}
		}
		return stageWait, nil
	}

	outcome, err := browser.FillAndSubmit(ctx, o.page, browser.FormFill{
		Fields: map[string]string{
			portal.LoginUserSelector: sess.Creds.Identifier,
			portal.LoginPassSelector: sess.Creds.Secret,
		},
		Submit:      portal.LoginSubmitSelector,
		ErrorBanner: portal.LoginErrorBanner,
	})
	if err != nil {
		return stageWait, fmt.Errorf("%w: login submit: %v", ErrParsingFailed, err)
	}

	switch outcome {
	case browser.AuthError:
		return stageWait, &LoginError{Reason: "portal rejected the supplied credentials"}
	case browser.FormNotFound:
		// Slow first paint, not a failure: re-poll within a bounded budget.
		if !sess.attempt("login-form-poll", o.cfg.LoginPollBudget) {
			return stageWait, fmt.Errorf("%w: login form never rendered", ErrNavigationFailed)
		}
		if err := sleep(ctx, 2*o.cfg.PollInterval); err != nil {
			return stageWait, err
		}
		return stageAgain, nil
	default:
		sess.loginSubmitted = true
		return stageWait, nil
	}
}

// sleep is a cancellable timer wait; the timer is stopped on every exit path.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

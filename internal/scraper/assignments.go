// File: internal/scraper/assignments.go
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/aonoki/unifetch/internal/browser"
	"github.com/aonoki/unifetch/internal/portal"
)

// assignmentPipeline is the short, branchless flow:
// login -> task page -> extract -> done.
type assignmentPipeline struct {
	o *Orchestrator
}

func (p *assignmentPipeline) name() string { return "assignments" }

func (p *assignmentPipeline) timeout() time.Duration {
	return p.o.cfg.AssignmentTimeout
}

func (p *assignmentPipeline) dispatch(ctx context.Context, sess *Session, state portal.PageState) (stageResult, error) {
	switch state {
	case portal.StateLoginForm:
		return p.o.handleLogin(ctx, sess)

	case portal.StateSsoChallenge:
		// Mid-redirect; the IdP navigates on its own.
		return stageWait, nil

	case portal.StateSurveyInterstitial:
		if _, err := browser.ClickByText(ctx, p.o.page, portal.SurveyDismissText); err != nil {
			return stageWait, fmt.Errorf("%w: survey dismissal: %v", ErrParsingFailed, err)
		}
		return stageWait, nil

	case portal.StatePortalHome:
		if err := p.o.page.Navigate(ctx, p.o.taskListURL()); err != nil {
			return stageWait, fmt.Errorf("%w: opening task list: %v", ErrNavigationFailed, err)
		}
		return stageWait, nil

	case portal.StateTaskList:
		rows, err := browser.Evaluate[[]portal.AssignmentRecord](ctx, p.o.page, portal.TaskListScript)
		if err != nil {
			return stageWait, fmt.Errorf("%w: task list extraction: %v", ErrParsingFailed, err)
		}
		sess.Assignments = portal.FilterAssignments(rows)
		return stageDone, nil

	default:
		// Unmapped combination: treat as still loading.
		return stageWait, nil
	}
}

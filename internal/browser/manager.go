// File: internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/aonoki/unifetch/internal/config"
)

// Page is the orchestrator's only view of the browser. Everything the state
// machine does -- navigation, script evaluation, load-event waits, DOM probes
// -- goes through this interface, which keeps the core testable without a
// live Chrome.
type Page interface {
	// Navigate loads a URL. Follow-up navigations triggered by the page
	// itself (redirect chains, form posts) surface only as load events.
	Navigate(ctx context.Context, url string) error
	// Location returns the last-committed document URL.
	Location(ctx context.Context) (string, error)
	// Evaluate runs a script in the page context and decodes its
	// serializable result into out (out may be nil to discard).
	Evaluate(ctx context.Context, script string, out any) error
	// HasElement reports whether a selector matches anything on the page.
	HasElement(ctx context.Context, selector string) (bool, error)
	// LoadEvents delivers a token per completed page load.
	LoadEvents() <-chan struct{}
}

// Manager owns one Chrome instance for the lifetime of one run. The profile
// is ephemeral (incognito plus a throwaway user-data-dir), so credentials and
// cookies never survive across runs.
type Manager struct {
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	loadCh    chan struct{}
	closeOnce sync.Once
}

const defaultRunTimeout = 60 * time.Second

// NewManager starts a browser and begins listening for page load events.
func NewManager(parent context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("incognito", true),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	for _, arg := range cfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)

	ctxOpts := []chromedp.ContextOption{}
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(logger.Sugar().Debugf))
	}
	ctx, cancel := chromedp.NewContext(allocCtx, ctxOpts...)

	m := &Manager{
		logger:      logger.Named("browser"),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		loadCh:      make(chan struct{}, 4),
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			select {
			case m.loadCh <- struct{}{}:
			default:
				// A pending token already covers this load.
			}
		}
	})

	// Start the browser process eagerly so a broken Chrome install fails the
	// run here rather than mid-pipeline.
	if err := chromedp.Run(ctx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return m, nil
}

// run executes fn against the browser context while honoring the caller's
// context as well. chromedp operations must run on the manager's own context,
// so cancellation of callCtx is bridged over.
func (m *Manager) run(callCtx context.Context, fn func(ctx context.Context) error) error {
	timeout := defaultRunTimeout
	if deadline, ok := callCtx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	runCtx, cancel := context.WithTimeout(m.ctx, timeout)
	defer cancel()

	go func() {
		select {
		case <-callCtx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	err := fn(runCtx)
	if callCtx.Err() != nil {
		return callCtx.Err()
	}
	return err
}

func (m *Manager) Navigate(ctx context.Context, url string) error {
	m.logger.Debug("Navigating", zap.String("url", url))
	return m.run(ctx, func(runCtx context.Context) error {
		return chromedp.Run(runCtx, chromedp.Navigate(url))
	})
}

func (m *Manager) Location(ctx context.Context) (string, error) {
	var loc string
	err := m.run(ctx, func(runCtx context.Context) error {
		return chromedp.Run(runCtx, chromedp.Location(&loc))
	})
	return loc, err
}

func (m *Manager) Evaluate(ctx context.Context, script string, out any) error {
	return m.run(ctx, func(runCtx context.Context) error {
		return chromedp.Run(runCtx, chromedp.Evaluate(script, out))
	})
}

func (m *Manager) HasElement(ctx context.Context, selector string) (bool, error) {
	var found bool
	err := m.Evaluate(ctx, fmt.Sprintf(`!!document.querySelector(%q)`, selector), &found)
	return found, err
}

func (m *Manager) LoadEvents() <-chan struct{} {
	return m.loadCh
}

// Close tears the browser down. Safe to call multiple times.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.logger.Debug("Closing browser")
		m.cancel()
		m.allocCancel()
	})
}

// File: internal/scraper/errors.go
package scraper

import (
	"errors"
	"fmt"
)

// Terminal failure taxonomy. A run either yields a complete accumulator for
// its pipeline or exactly one of these; there are no partial results.
var (
	// ErrInvalidCredentials means the supplied identifier or secret was empty.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginFailed is the base error wrapped by LoginError.
	ErrLoginFailed = errors.New("login failed")
	// ErrNavigationFailed means the classifier stayed on an unrecognized page
	// past the retry budget, or the browser could not reach the portal.
	ErrNavigationFailed = errors.New("navigation failed")
	// ErrParsingFailed means an extraction script threw or returned an
	// unexpected shape.
	ErrParsingFailed = errors.New("extraction failed")
	// ErrTimeout means the global watchdog fired.
	ErrTimeout = errors.New("fetch timed out")
	// ErrContactInfoCheckRequired means the portal interjected its contact
	// information confirmation page. Resolving it needs a human in a real
	// browser; scripting past it could corrupt portal-side state, so this is
	// never retried.
	ErrContactInfoCheckRequired = errors.New("contact info confirmation required")
	// ErrAlreadyRunning means a fetch was issued while another one was still
	// pending on the same orchestrator.
	ErrAlreadyRunning = errors.New("a fetch is already running")
	// ErrCancelled means the caller's context was cancelled.
	ErrCancelled = errors.New("fetch cancelled")
)

// LoginError carries the reason an explicit authentication failure was
// reported by the portal. errors.Is(err, ErrLoginFailed) matches it.
type LoginError struct {
	Reason string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed: %s", e.Reason)
}

func (e *LoginError) Unwrap() error {
	return ErrLoginFailed
}

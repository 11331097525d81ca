package engine

import (
	"context"

	"github.com/pharos-audit/pharos/internal/domain"
)

// Engine defines the interface for the audit capability. Implementations
// measure a page's performance under a device profile and produce a
// structured report, or fail with a classified error (see errors.go).
type Engine interface {
	// NewSession allocates an isolated execution context for exactly one
	// audit attempt. The caller owns the returned session exclusively and
	// must close it on every exit path, including forced termination.
	//
	// Returns an error if the engine cannot allocate the session, for
	// example under resource exhaustion; such failures are not retryable.
	NewSession(settings domain.AuditSettings) (Session, error)
}

// Session is one exclusively owned execution context. A session performs at
// most one audit and is then discarded; it is never returned to a pool or
// handed to another task.
type Session interface {
	// Run navigates to the target URL and measures it. Run may be called
	// at most once per session. The context bounds the navigation and
	// cancelling it aborts the attempt.
	//
	// Returns the measured report, or an error wrapping ErrNetwork for
	// network-class failures and ErrEngine for engine failures so the
	// retry policy can classify without string matching.
	Run(ctx context.Context, targetURL string) (*domain.Report, error)

	// Close releases the session's resources. It is safe to call multiple
	// times; only the first call has effect. Closing a session with a Run
	// in flight forcibly aborts that navigation.
	Close() error
}

package engine

import "errors"

// Common errors returned by the engine package
var (
	// ErrNetwork is returned (wrapped) for network-class navigation
	// failures: connection refused, host unreachable, connection reset,
	// DNS failure, protocol-level timeout. These are transient and worth
	// one retry.
	ErrNetwork = errors.New("network failure during audit")

	// ErrEngine is returned (wrapped) for engine failures that a retry
	// cannot fix: a failed document request, malformed input reaching the
	// engine, resource exhaustion.
	ErrEngine = errors.New("audit engine failure")

	// ErrSessionClosed is returned when Run is called on a closed session.
	ErrSessionClosed = errors.New("session already closed")

	// ErrSessionReused is returned when Run is called a second time on the
	// same session. Sessions are single-use.
	ErrSessionReused = errors.New("session already consumed by a previous run")
)

package audit

import "errors"

var (
	// ErrInvalidConcurrency is returned when the configured worker count is
	// outside the supported range of MinConcurrency to MaxConcurrency.
	ErrInvalidConcurrency = errors.New("concurrency out of range")

	// ErrHardDeadline marks an attempt whose execution context was forcibly
	// terminated after overrunning its time budget plus the kill grace.
	ErrHardDeadline = errors.New("attempt exceeded hard deadline")
)

package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyTargetURL is returned when a task is created without a target URL.
	ErrEmptyTargetURL = errors.New("target URL cannot be empty")

	// ErrInvalidTargetURL is returned when a target URL is not an absolute
	// HTTP or HTTPS URL.
	ErrInvalidTargetURL = errors.New("target URL must be absolute http or https")

	// ErrInvalidDeviceMode is returned when a device mode is not recognized.
	ErrInvalidDeviceMode = errors.New("invalid device mode")

	// ErrInvalidTimeout is returned when an audit timeout is zero or negative.
	ErrInvalidTimeout = errors.New("audit timeout must be positive")

	// ErrInvalidTaskIndex is returned when a task index is negative.
	ErrInvalidTaskIndex = errors.New("task index cannot be negative")

	// ErrInvalidTaskStatus is returned when a task status is not valid.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidFailureKind is returned when a failure kind is not valid.
	ErrInvalidFailureKind = errors.New("invalid failure kind")

	// ErrMissingReport is returned when a succeeded outcome carries no report.
	ErrMissingReport = errors.New("succeeded outcome must carry a report")

	// ErrMissingFailure is returned when a failed outcome carries no error detail.
	ErrMissingFailure = errors.New("failed outcome must carry an error detail")

	// ErrInvalidAttemptCount is returned when an outcome reports an attempt
	// count outside the permitted range.
	ErrInvalidAttemptCount = errors.New("attempt count must be 1 or 2")
)

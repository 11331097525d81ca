package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the terminal state of a task after all attempts.
type TaskStatus string

// Possible task status values
const (
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// TaskState represents the observable lifecycle state of a task as exposed
// through progress events. Pending tasks sit in the backlog, running tasks
// are admitted to a runner, succeeded and failed are terminal.
type TaskState string

// Possible task state values
const (
	StatePending   TaskState = "pending"
	StateRunning   TaskState = "running"
	StateSucceeded TaskState = "succeeded"
	StateFailed    TaskState = "failed"
)

// FailureKind classifies why a task failed. The retry policy keys off this
// classification: network and timeout failures warrant a second attempt,
// engine and canceled failures do not.
type FailureKind string

// Possible failure kind values
const (
	// FailureNetwork covers connection refused, host unreachable,
	// connection reset, DNS failure, and protocol-level timeouts.
	FailureNetwork FailureKind = "network"

	// FailureTimeout means the attempt overran its hard deadline and its
	// execution context was forcibly terminated.
	FailureTimeout FailureKind = "timeout"

	// FailureEngine covers unrecoverable engine failures: a crash,
	// resource exhaustion, or malformed input reaching the engine.
	FailureEngine FailureKind = "engine"

	// FailureCanceled means the batch context was canceled while the
	// attempt was in flight.
	FailureCanceled FailureKind = "canceled"
)

// Retryable reports whether a failure of this kind warrants a second
// attempt. The runner still caps the budget at one retry regardless.
func (k FailureKind) Retryable() bool {
	return k == FailureNetwork || k == FailureTimeout
}

// isValidFailureKind checks if the given kind is one of the defined values.
func isValidFailureKind(kind FailureKind) bool {
	switch kind {
	case FailureNetwork, FailureTimeout, FailureEngine, FailureCanceled:
		return true
	default:
		return false
	}
}

// TaskError is the classified error detail carried by a failed outcome.
type TaskError struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// NewTaskError creates a TaskError with the given classification and message.
func NewTaskError(kind FailureKind, message string) *TaskError {
	return &TaskError{Kind: kind, Message: message}
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// TaskOutcome is the terminal result of a task after all attempts. Exactly
// one outcome is produced per submitted task: never zero, never more than
// one. Report is present iff the task succeeded; Err is present iff it
// failed.
type TaskOutcome struct {
	TaskID    uuid.UUID  `json:"task_id"`
	TargetURL string     `json:"target_url"`
	Index     int        `json:"index"`
	Status    TaskStatus `json:"status"`
	Report    *Report    `json:"report,omitempty"`
	Err       *TaskError `json:"error,omitempty"`

	// Attempts is the number of execution attempts the task consumed:
	// 1 or 2, never more.
	Attempts int `json:"attempts"`

	// Duration is the sum of the attempt durations, not the time the task
	// spent queued.
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

// NewSucceededOutcome creates the terminal outcome for a task whose attempt
// produced a report.
func NewSucceededOutcome(task *AuditTask, report *Report, attempts int, duration time.Duration) (*TaskOutcome, error) {
	out := &TaskOutcome{
		TaskID:     task.ID,
		TargetURL:  task.TargetURL,
		Index:      task.Index,
		Status:     TaskSucceeded,
		Report:     report,
		Attempts:   attempts,
		Duration:   duration,
		FinishedAt: time.Now().UTC(),
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// NewFailedOutcome creates the terminal outcome for a task whose attempts
// were exhausted or terminally failed.
func NewFailedOutcome(task *AuditTask, taskErr *TaskError, attempts int, duration time.Duration) (*TaskOutcome, error) {
	out := &TaskOutcome{
		TaskID:     task.ID,
		TargetURL:  task.TargetURL,
		Index:      task.Index,
		Status:     TaskFailed,
		Err:        taskErr,
		Attempts:   attempts,
		Duration:   duration,
		FinishedAt: time.Now().UTC(),
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks the outcome's internal consistency: status matches the
// presence of report vs error, and the attempt count is within budget.
func (o *TaskOutcome) Validate() error {
	switch o.Status {
	case TaskSucceeded:
		if o.Report == nil {
			return ErrMissingReport
		}
	case TaskFailed:
		if o.Err == nil {
			return ErrMissingFailure
		}
		if !isValidFailureKind(o.Err.Kind) {
			return ErrInvalidFailureKind
		}
	default:
		return ErrInvalidTaskStatus
	}

	if o.Attempts < 1 || o.Attempts > 2 {
		return ErrInvalidAttemptCount
	}
	return nil
}

// Succeeded reports whether the task reached its terminal state with a report.
func (o *TaskOutcome) Succeeded() bool {
	return o.Status == TaskSucceeded
}

// TerminalState maps the outcome's status to the progress-event state.
func (o *TaskOutcome) TerminalState() TaskState {
	if o.Succeeded() {
		return StateSucceeded
	}
	return StateFailed
}

// BatchSummary is the aggregate over all tasks in one submission. It is
// computed by the orchestrator only after the last outcome arrives and is
// immutable from then on. Succeeded+Failed always equals Total.
type BatchSummary struct {
	BatchID    uuid.UUID     `json:"batch_id"`
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`

	// Duration is wall-clock time from first submission to last terminal
	// outcome.
	Duration time.Duration `json:"duration"`
}

// AllSucceeded reports whether every task in the batch succeeded. The CLI
// derives its exit code from this.
func (s *BatchSummary) AllSucceeded() bool {
	return s.Failed == 0
}

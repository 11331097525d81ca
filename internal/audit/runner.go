package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pharos-audit/pharos/internal/domain"
	"github.com/pharos-audit/pharos/internal/redact"
)

// DefaultRetryDelay paces the gap between a failed attempt and its retry.
const DefaultRetryDelay = 2 * time.Second

// maxAttempts caps the per-task attempt budget: the initial attempt plus
// at most one retry, regardless of failure kind.
const maxAttempts = 2

// RunnerConfig holds configuration for the runner.
type RunnerConfig struct {
	// RetryDelay is the pause between a retryable failure and the second
	// attempt. If zero or negative, defaults to DefaultRetryDelay.
	RetryDelay time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		RetryDelay: DefaultRetryDelay,
	}
}

// Runner drives a single task through its attempt loop to a terminal
// outcome. Failures are classified after every attempt; only network and
// timeout failures earn the one retry the budget allows.
type Runner struct {
	executor *Executor
	config   RunnerConfig
	logger   *slog.Logger
}

// NewRunner creates a Runner on top of the given executor.
func NewRunner(executor *Executor, config RunnerConfig, logger *slog.Logger) (*Runner, error) {
	if executor == nil {
		return nil, errors.New("executor cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}

	return &Runner{
		executor: executor,
		config:   config,
		logger:   logger.With("component", "runner"),
	}, nil
}

// RunTask executes the task's attempt loop and returns its terminal
// outcome. Exactly one outcome is returned for every call, no matter how
// the attempts end. The outcome's duration covers time spent executing,
// not time spent queued or waiting out the retry delay.
func (r *Runner) RunTask(ctx context.Context, task *domain.AuditTask) *domain.TaskOutcome {
	logger := r.logger.With("task_id", task.ID, "url", redact.URL(task.TargetURL))

	var spent time.Duration
	for attemptNum := 1; attemptNum <= maxAttempts; attemptNum++ {
		attempt := r.executor.Execute(ctx, task)
		spent += attempt.Duration

		if attempt.Err == nil {
			logger.Info("task succeeded",
				"attempt", attemptNum,
				"score", attempt.Report.Score,
				"duration", attempt.Duration)
			outcome, err := domain.NewSucceededOutcome(task, attempt.Report, attemptNum, spent)
			if err != nil {
				logger.Error("failed to build succeeded outcome", "error", err)
				return r.failedOutcome(task, domain.NewTaskError(domain.FailureEngine, err.Error()), attemptNum, spent)
			}
			return outcome
		}

		kind := Classify(attempt.Err)
		if !kind.Retryable() {
			logger.Warn("task failed permanently",
				"attempt", attemptNum,
				"failure_kind", kind,
				"error", attempt.Err)
			return r.failedOutcome(task, domain.NewTaskError(kind, attempt.Err.Error()), attemptNum, spent)
		}
		if attemptNum >= maxAttempts {
			logger.Warn("task failed, attempt budget exhausted",
				"attempts", attemptNum,
				"failure_kind", kind,
				"error", attempt.Err)
			return r.failedOutcome(task, domain.NewTaskError(kind, attempt.Err.Error()), attemptNum, spent)
		}

		logger.Info("attempt failed, retrying",
			"attempt", attemptNum,
			"failure_kind", kind,
			"delay", r.config.RetryDelay,
			"error", attempt.Err)

		// Wait out the retry delay, or give up if the batch is canceled.
		select {
		case <-time.After(r.config.RetryDelay):
		case <-ctx.Done():
			logger.Warn("batch canceled during retry delay", "attempt", attemptNum)
			return r.failedOutcome(task, domain.NewTaskError(domain.FailureCanceled, ctx.Err().Error()), attemptNum, spent)
		}
	}

	// Unreachable: every path through the loop returns.
	return r.failedOutcome(task, domain.NewTaskError(domain.FailureEngine, "attempt loop exited without outcome"), maxAttempts, spent)
}

// failedOutcome builds the terminal failure outcome for a task. A
// constructor error here means an invariant bug; the task still gets its
// outcome so the batch always accounts for it.
func (r *Runner) failedOutcome(task *domain.AuditTask, taskErr *domain.TaskError, attempts int, spent time.Duration) *domain.TaskOutcome {
	outcome, err := domain.NewFailedOutcome(task, taskErr, attempts, spent)
	if err != nil {
		r.logger.Error("failed to build failed outcome",
			"task_id", task.ID,
			"error", err)
		outcome = &domain.TaskOutcome{
			TaskID:     task.ID,
			TargetURL:  task.TargetURL,
			Index:      task.Index,
			Status:     domain.TaskFailed,
			Err:        taskErr,
			Attempts:   attempts,
			Duration:   spent,
			FinishedAt: time.Now().UTC(),
		}
	}
	return outcome
}

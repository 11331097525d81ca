package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pharos-audit/pharos/internal/domain"
	"github.com/pharos-audit/pharos/internal/engine"
	"github.com/pharos-audit/pharos/internal/redact"
)

// DefaultKillGrace is how long past its timeout an attempt may keep
// running before its session is force-closed.
const DefaultKillGrace = 5 * time.Second

// ExecutorConfig holds configuration for the executor.
type ExecutorConfig struct {
	// KillGrace is the slack granted past the audit timeout before the
	// watchdog force-closes the session. If zero or negative, defaults to
	// DefaultKillGrace.
	KillGrace time.Duration
}

// DefaultExecutorConfig returns an ExecutorConfig with reasonable defaults
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		KillGrace: DefaultKillGrace,
	}
}

// Attempt is the result of a single execution attempt. Report and Err are
// mutually exclusive.
type Attempt struct {
	Report    *domain.Report
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

func newAttempt(started time.Time, report *domain.Report, err error) Attempt {
	ended := time.Now()
	return Attempt{
		Report:    report,
		Err:       err,
		StartedAt: started,
		EndedAt:   ended,
		Duration:  ended.Sub(started),
	}
}

// Executor drives one execution attempt end to end: it opens a dedicated
// engine session, runs the navigation under a watchdog, and releases the
// session on every exit path. A session belongs to exactly one attempt and
// is closed exactly once no matter how the attempt ends, so force-killed
// or abandoned attempts cannot leak execution contexts into later ones.
type Executor struct {
	engine engine.Engine
	config ExecutorConfig
	logger *slog.Logger
}

// NewExecutor creates an Executor backed by the given engine.
func NewExecutor(eng engine.Engine, config ExecutorConfig, logger *slog.Logger) (*Executor, error) {
	if eng == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.KillGrace <= 0 {
		config.KillGrace = DefaultKillGrace
	}

	return &Executor{
		engine: eng,
		config: config,
		logger: logger.With("component", "executor"),
	}, nil
}

// Execute runs a single attempt for the task. The engine gets its full
// configured timeout to finish cleanly; an attempt still running KillGrace
// past that is force-killed and reported as a hard-deadline failure.
func (e *Executor) Execute(ctx context.Context, task *domain.AuditTask) Attempt {
	started := time.Now()

	sess, err := e.engine.NewSession(task.Settings)
	if err != nil {
		return newAttempt(started, nil, fmt.Errorf("failed to open session: %w", err))
	}

	type runResult struct {
		report *domain.Report
		err    error
	}
	resultCh := make(chan runResult, 1)
	go func() {
		report, runErr := sess.Run(ctx, task.TargetURL)
		resultCh <- runResult{report: report, err: runErr}
	}()

	budget := task.Settings.Timeout + e.config.KillGrace
	watchdog := time.NewTimer(budget)
	defer watchdog.Stop()

	var res runResult
	select {
	case res = <-resultCh:
		// Attempt finished on its own: success, failure, or the engine's
		// clean timeout.

	case <-watchdog.C:
		// The engine blew through its own deadline. Force the session shut
		// and harvest whatever the aborted attempt produced.
		e.logger.Warn("attempt overran its deadline, force-closing session",
			"task_id", task.ID,
			"url", redact.URL(task.TargetURL),
			"budget", budget)
		_ = sess.Close()
		select {
		case inner := <-resultCh:
			if inner.err != nil {
				res = runResult{err: fmt.Errorf("%w: force-killed after %s: %v", ErrHardDeadline, budget, inner.err)}
			} else {
				res = runResult{err: fmt.Errorf("%w: force-killed after %s", ErrHardDeadline, budget)}
			}
		case <-time.After(e.config.KillGrace):
			// The session did not release even after being closed. Abandon
			// the attempt goroutine rather than wedge the worker.
			e.logger.Error("session unresponsive after force-close, abandoning attempt",
				"task_id", task.ID,
				"url", redact.URL(task.TargetURL))
			res = runResult{err: fmt.Errorf("%w: session unresponsive %s after force-close", ErrHardDeadline, e.config.KillGrace)}
		}

	case <-ctx.Done():
		// The batch is shutting down; abort the attempt.
		_ = sess.Close()
		select {
		case <-resultCh:
		case <-time.After(e.config.KillGrace):
		}
		res = runResult{err: fmt.Errorf("attempt aborted: %w", ctx.Err())}
	}

	// Release is unconditional. Close is idempotent, so the force-kill
	// paths above cannot double-release.
	if closeErr := sess.Close(); closeErr != nil {
		e.logger.Warn("failed to close session",
			"task_id", task.ID,
			"error", closeErr)
	}

	if res.err != nil {
		return newAttempt(started, nil, res.err)
	}
	return newAttempt(started, res.report, nil)
}

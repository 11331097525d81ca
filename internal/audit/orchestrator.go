// Package audit implements batch execution of page audits: a bounded pool
// of workers draining a FIFO queue, a per-task attempt loop with failure
// classification, and an orchestrator that aggregates the terminal
// outcomes into an immutable batch summary.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pharos-audit/pharos/internal/domain"
	"github.com/pharos-audit/pharos/internal/engine"
	"github.com/pharos-audit/pharos/internal/redact"
)

// BatchConfig holds everything needed to run one batch.
type BatchConfig struct {
	// Concurrency is the number of workers, between MinConcurrency and
	// MaxConcurrency.
	Concurrency int

	// Settings are the audit parameters every task in the batch shares.
	Settings domain.AuditSettings

	// RetryDelay paces retries; zero means DefaultRetryDelay.
	RetryDelay time.Duration

	// KillGrace is the watchdog slack past the audit timeout; zero means
	// DefaultKillGrace.
	KillGrace time.Duration
}

// DefaultBatchConfig returns a BatchConfig with reasonable defaults
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Concurrency: 4,
		Settings: domain.AuditSettings{
			Device:  domain.DeviceDesktop,
			Timeout: 30 * time.Second,
		},
		RetryDelay: DefaultRetryDelay,
		KillGrace:  DefaultKillGrace,
	}
}

// Validate checks the batch configuration. Configuration problems are
// fatal before any work starts.
func (c BatchConfig) Validate() error {
	if err := (SchedulerConfig{Concurrency: c.Concurrency}).Validate(); err != nil {
		return err
	}
	return c.Settings.Validate()
}

// OutcomeSink receives terminal outcomes and the final summary as they
// are produced. Sink failures are logged and never affect batch
// execution or the summary's counts.
type OutcomeSink interface {
	// WriteOutcome records one task's terminal outcome.
	WriteOutcome(ctx context.Context, outcome *domain.TaskOutcome) error

	// WriteSummary records the batch summary after the last outcome.
	WriteSummary(ctx context.Context, summary *domain.BatchSummary) error
}

// BatchMetrics records batch-level counters. Implementations must be safe
// for concurrent use.
type BatchMetrics interface {
	RecordOutcome(ctx context.Context, outcome *domain.TaskOutcome)
	RecordBatch(ctx context.Context, summary *domain.BatchSummary)
	RecordSinkFailure(ctx context.Context)
}

// Orchestrator owns a batch from submission to summary. It validates the
// configuration up front, fans the tasks out through the scheduler, and
// consumes the outcome channel in a single loop. The succeeded and failed
// counters live only in that loop, so aggregation needs no locks and no
// shared mutable state: workers communicate results exclusively by
// passing outcomes over the channel.
type Orchestrator struct {
	engine    engine.Engine
	config    BatchConfig
	scheduler *Scheduler
	logger    *slog.Logger

	sinks   []OutcomeSink
	metrics BatchMetrics
}

// NewOrchestrator creates an Orchestrator for the given engine and batch
// configuration. Returns a configuration error if the config is invalid.
func NewOrchestrator(eng engine.Engine, config BatchConfig, logger *slog.Logger) (*Orchestrator, error) {
	if eng == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch config: %w", err)
	}

	executor, err := NewExecutor(eng, ExecutorConfig{KillGrace: config.KillGrace}, logger)
	if err != nil {
		return nil, err
	}
	runner, err := NewRunner(executor, RunnerConfig{RetryDelay: config.RetryDelay}, logger)
	if err != nil {
		return nil, err
	}
	scheduler, err := NewScheduler(runner, SchedulerConfig{Concurrency: config.Concurrency}, logger)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		engine:    eng,
		config:    config,
		scheduler: scheduler,
		logger:    logger.With("component", "orchestrator"),
	}, nil
}

// AddSink registers a sink to receive outcomes and the summary.
func (o *Orchestrator) AddSink(sink OutcomeSink) {
	o.sinks = append(o.sinks, sink)
}

// SetProgressEmitter allows setting an emitter for task lifecycle events.
func (o *Orchestrator) SetProgressEmitter(emitter ProgressEmitter) {
	o.scheduler.SetProgressEmitter(emitter)
}

// SetMetrics allows setting a recorder for batch counters.
func (o *Orchestrator) SetMetrics(metrics BatchMetrics) {
	o.metrics = metrics
}

// RunBatch audits every target URL and returns the batch summary. The
// summary always satisfies Succeeded+Failed == Total: every task produces
// exactly one outcome and the single consume loop counts them all. An
// error is returned only for pre-run problems; individual task failures
// are reflected in the summary, not in the error.
func (o *Orchestrator) RunBatch(ctx context.Context, targetURLs []string) (*domain.BatchSummary, error) {
	batchID := uuid.New()
	started := time.Now()
	logger := o.logger.With("batch_id", batchID)

	// Build and validate every task up front; a malformed target fails
	// the batch before any audit runs.
	tasks := make([]*domain.AuditTask, 0, len(targetURLs))
	for i, raw := range targetURLs {
		task, err := domain.NewAuditTask(raw, i, o.config.Settings)
		if err != nil {
			return nil, fmt.Errorf("target %d (%q): %w", i, raw, err)
		}
		tasks = append(tasks, task)
	}

	// An empty batch is a no-op, not an error.
	if len(tasks) == 0 {
		logger.Info("batch is empty, nothing to do")
		now := time.Now().UTC()
		summary := &domain.BatchSummary{
			BatchID:    batchID,
			StartedAt:  now,
			FinishedAt: now,
		}
		o.forwardSummary(ctx, summary)
		return summary, nil
	}

	logger.Info("starting batch",
		"total", len(tasks),
		"concurrency", o.config.Concurrency,
		"device", o.config.Settings.Device,
		"timeout", o.config.Settings.Timeout)

	outcomes := o.scheduler.Run(ctx, batchID, tasks)

	succeeded, failed := 0, 0
	for outcome := range outcomes {
		if outcome.Succeeded() {
			succeeded++
		} else {
			failed++
			logger.Warn("task failed",
				"url", redact.URL(outcome.TargetURL),
				"failure_kind", outcome.Err.Kind,
				"attempts", outcome.Attempts,
				"error", outcome.Err.Message)
		}
		o.forwardOutcome(ctx, outcome)
		logger.Debug("batch progress",
			"completed", succeeded+failed,
			"total", len(tasks))
	}

	finished := time.Now()
	summary := &domain.BatchSummary{
		BatchID:    batchID,
		Total:      len(tasks),
		Succeeded:  succeeded,
		Failed:     failed,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Duration:   finished.Sub(started),
	}

	o.forwardSummary(ctx, summary)

	logger.Info("batch finished",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration", summary.Duration)

	return summary, nil
}

// forwardOutcome hands an outcome to every sink and the metrics recorder.
// Reporting must never take the batch down; failures are logged and the
// loop moves on.
func (o *Orchestrator) forwardOutcome(ctx context.Context, outcome *domain.TaskOutcome) {
	for _, sink := range o.sinks {
		if err := sink.WriteOutcome(ctx, outcome); err != nil {
			o.logger.Error("sink failed to record outcome",
				"task_id", outcome.TaskID,
				"url", redact.URL(outcome.TargetURL),
				"error", err)
			if o.metrics != nil {
				o.metrics.RecordSinkFailure(ctx)
			}
		}
	}
	if o.metrics != nil {
		o.metrics.RecordOutcome(ctx, outcome)
	}
}

// forwardSummary hands the final summary to every sink and the metrics
// recorder, with the same tolerance as forwardOutcome.
func (o *Orchestrator) forwardSummary(ctx context.Context, summary *domain.BatchSummary) {
	for _, sink := range o.sinks {
		if err := sink.WriteSummary(ctx, summary); err != nil {
			o.logger.Error("sink failed to record summary",
				"batch_id", summary.BatchID,
				"error", err)
			if o.metrics != nil {
				o.metrics.RecordSinkFailure(ctx)
			}
		}
	}
	if o.metrics != nil {
		o.metrics.RecordBatch(ctx, summary)
	}
}

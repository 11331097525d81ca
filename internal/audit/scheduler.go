package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pharos-audit/pharos/internal/domain"
)

// Concurrency bounds for a batch. Audits are expensive, so the ceiling is
// deliberately low.
const (
	MinConcurrency = 1
	MaxConcurrency = 10
)

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	// Concurrency determines how many workers drain the queue. Must be
	// between MinConcurrency and MaxConcurrency; anything else is a
	// configuration error, not a value to clamp.
	Concurrency int
}

// Validate checks the configuration before any work starts.
func (c SchedulerConfig) Validate() error {
	if c.Concurrency < MinConcurrency || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("%w: must be between %d and %d, got %d",
			ErrInvalidConcurrency, MinConcurrency, MaxConcurrency, c.Concurrency)
	}
	return nil
}

// Scheduler fans a batch of tasks out to a bounded pool of workers. The
// queue is a FIFO channel preloaded in submission order, so tasks are
// admitted strictly in the order they were submitted: whenever a worker
// frees up, it picks up the oldest waiting task. Each admitted task is
// driven through its full attempt loop and yields exactly one terminal
// outcome on the returned channel.
type Scheduler struct {
	runner  *Runner
	config  SchedulerConfig
	logger  *slog.Logger
	emitter ProgressEmitter
}

// NewScheduler creates a Scheduler with the specified configuration.
func NewScheduler(runner *Runner, config SchedulerConfig, logger *slog.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("runner cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Scheduler{
		runner: runner,
		config: config,
		logger: logger.With("component", "scheduler"),
	}, nil
}

// SetProgressEmitter allows setting an emitter for task lifecycle events.
// If nil, transitions are not published.
func (s *Scheduler) SetProgressEmitter(emitter ProgressEmitter) {
	s.emitter = emitter
}

// Run starts the worker pool over the given tasks and returns the outcome
// channel. The channel carries one outcome per task and is closed after
// the last one; consuming it to exhaustion is how callers observe batch
// completion. Cancellation drains the backlog quickly rather than
// dropping it, so every task still gets its outcome.
func (s *Scheduler) Run(ctx context.Context, batchID uuid.UUID, tasks []*domain.AuditTask) <-chan *domain.TaskOutcome {
	total := len(tasks)

	// Preload the queue in submission order. The buffer holds the whole
	// batch, so submission never blocks and the order is fixed up front.
	taskChan := make(chan *domain.AuditTask, total)
	for _, task := range tasks {
		taskChan <- task
		s.emit(ctx, NewProgressEvent(batchID, task, total, domain.StatePending, 0))
	}
	close(taskChan)

	outcomes := make(chan *domain.TaskOutcome, total)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Concurrency; i++ {
		wg.Add(1)
		go s.worker(ctx, batchID, i, taskChan, outcomes, total, &wg)
	}

	// Close the outcome channel once every worker has drained out, so the
	// consumer's range terminates exactly after the final outcome.
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	return outcomes
}

// worker processes tasks from the queue until it is empty
func (s *Scheduler) worker(
	ctx context.Context,
	batchID uuid.UUID,
	id int,
	taskChan <-chan *domain.AuditTask,
	outcomes chan<- *domain.TaskOutcome,
	total int,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	s.logger.Debug("starting worker", "worker_id", id)

	for task := range taskChan {
		s.emit(ctx, NewProgressEvent(batchID, task, total, domain.StateRunning, 0))

		outcome := s.runner.RunTask(ctx, task)

		s.emit(ctx, NewProgressEvent(batchID, task, total, outcome.TerminalState(), outcome.Attempts))
		outcomes <- outcome
	}

	s.logger.Debug("queue drained, stopping worker", "worker_id", id)
}

// emit publishes a progress event. Event delivery is best effort: a
// failing handler never affects batch execution.
func (s *Scheduler) emit(ctx context.Context, event *ProgressEvent) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.EmitProgress(ctx, event); err != nil {
		s.logger.Warn("progress handler failed",
			"error", err,
			"task_id", event.TaskID,
			"state", event.State)
	}
}

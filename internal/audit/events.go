package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharos-audit/pharos/internal/domain"
)

// ProgressEvent represents one observable transition in a task's
// lifecycle. Events carry enough context for a display or log subscriber
// without direct dependencies on the scheduler.
type ProgressEvent struct {
	// BatchID identifies the batch the task belongs to
	BatchID uuid.UUID `json:"batch_id"`

	// TaskID identifies the task that transitioned
	TaskID uuid.UUID `json:"task_id"`

	// TargetURL is the task's audit target
	TargetURL string `json:"target_url"`

	// Index is the task's zero-based submission position
	Index int `json:"index"`

	// Total is the number of tasks in the batch
	Total int `json:"total"`

	// State is the lifecycle state the task transitioned into
	State domain.TaskState `json:"state"`

	// Attempts is how many attempts the task has consumed so far; zero
	// for transitions before the first attempt starts
	Attempts int `json:"attempts,omitempty"`

	// EmittedAt is the timestamp when the event was created
	EmittedAt time.Time `json:"emitted_at"`
}

// NewProgressEvent creates a ProgressEvent for the given task transition.
func NewProgressEvent(batchID uuid.UUID, task *domain.AuditTask, total int, state domain.TaskState, attempts int) *ProgressEvent {
	return &ProgressEvent{
		BatchID:   batchID,
		TaskID:    task.ID,
		TargetURL: task.TargetURL,
		Index:     task.Index,
		Total:     total,
		State:     state,
		Attempts:  attempts,
		EmittedAt: time.Now().UTC(),
	}
}

// ProgressHandler defines an interface for components that can handle
// progress events.
type ProgressHandler interface {
	// HandleProgress processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleProgress(ctx context.Context, event *ProgressEvent) error
}

// ProgressEmitter defines an interface for components that can emit
// progress events. This lets the scheduler publish transitions without
// direct knowledge of subscribers.
type ProgressEmitter interface {
	// EmitProgress publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitProgress(ctx context.Context, event *ProgressEvent) error
}

// InMemoryProgressEmitter is a simple implementation of the
// ProgressEmitter interface that stores registered handlers in memory and
// dispatches events to them.
type InMemoryProgressEmitter struct {
	handlers []ProgressHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryProgressEmitter creates a new instance of InMemoryProgressEmitter.
func NewInMemoryProgressEmitter(logger *slog.Logger) *InMemoryProgressEmitter {
	return &InMemoryProgressEmitter{
		handlers: make([]ProgressHandler, 0),
		logger:   logger.With("component", "in_memory_progress_emitter"),
	}
}

// RegisterHandler adds a new handler to receive progress events.
func (e *InMemoryProgressEmitter) RegisterHandler(handler ProgressHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered new progress handler", "handler_count", len(e.handlers))
}

// EmitProgress publishes the given event to all registered handlers.
// If any handler returns an error, the event is still sent to all other
// handlers, and the first error encountered is returned.
func (e *InMemoryProgressEmitter) EmitProgress(ctx context.Context, event *ProgressEvent) error {
	e.mu.RLock()
	handlers := make([]ProgressHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleProgress(ctx, event); err != nil {
			e.logger.Error("handler failed to process progress event",
				"error", err,
				"handler_index", i,
				"task_id", event.TaskID,
				"state", event.State)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

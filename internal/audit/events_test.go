package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharos-audit/pharos/internal/domain"
)

// progressHandlerFunc adapts a function to the ProgressHandler interface
type progressHandlerFunc func(ctx context.Context, event *ProgressEvent) error

func (f progressHandlerFunc) HandleProgress(ctx context.Context, event *ProgressEvent) error {
	return f(ctx, event)
}

func TestNewProgressEvent(t *testing.T) {
	task := testTask(t, "https://example.com", time.Second)
	batchID := uuid.New()

	event := NewProgressEvent(batchID, task, 7, domain.StateRunning, 0)

	assert.Equal(t, batchID, event.BatchID)
	assert.Equal(t, task.ID, event.TaskID)
	assert.Equal(t, task.TargetURL, event.TargetURL)
	assert.Equal(t, task.Index, event.Index)
	assert.Equal(t, 7, event.Total)
	assert.Equal(t, domain.StateRunning, event.State)
	assert.False(t, event.EmittedAt.IsZero())
}

func TestInMemoryProgressEmitter_DispatchesToAllHandlers(t *testing.T) {
	emitter := NewInMemoryProgressEmitter(setupTestLogger())

	first := make(chan *ProgressEvent, 1)
	second := make(chan *ProgressEvent, 1)
	emitter.RegisterHandler(progressHandlerFunc(func(ctx context.Context, event *ProgressEvent) error {
		first <- event
		return nil
	}))
	emitter.RegisterHandler(progressHandlerFunc(func(ctx context.Context, event *ProgressEvent) error {
		second <- event
		return nil
	}))

	task := testTask(t, "https://example.com", time.Second)
	event := NewProgressEvent(uuid.New(), task, 1, domain.StatePending, 0)

	require.NoError(t, emitter.EmitProgress(context.Background(), event))
	assert.Equal(t, event, <-first)
	assert.Equal(t, event, <-second)
}

func TestInMemoryProgressEmitter_HandlerErrorDoesNotStopDispatch(t *testing.T) {
	emitter := NewInMemoryProgressEmitter(setupTestLogger())

	handlerErr := errors.New("display broken")
	emitter.RegisterHandler(progressHandlerFunc(func(ctx context.Context, event *ProgressEvent) error {
		return handlerErr
	}))

	reached := make(chan struct{}, 1)
	emitter.RegisterHandler(progressHandlerFunc(func(ctx context.Context, event *ProgressEvent) error {
		reached <- struct{}{}
		return nil
	}))

	task := testTask(t, "https://example.com", time.Second)
	err := emitter.EmitProgress(context.Background(), NewProgressEvent(uuid.New(), task, 1, domain.StateRunning, 0))

	// The first handler's error is reported, but the second handler still
	// received the event.
	assert.Equal(t, handlerErr, err)
	select {
	case <-reached:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for second handler to receive the event")
	}
}

func TestInMemoryProgressEmitter_NoHandlers(t *testing.T) {
	emitter := NewInMemoryProgressEmitter(setupTestLogger())
	task := testTask(t, "https://example.com", time.Second)

	assert.NoError(t, emitter.EmitProgress(context.Background(), NewProgressEvent(uuid.New(), task, 1, domain.StatePending, 0)))
}

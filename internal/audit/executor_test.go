package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharos-audit/pharos/internal/domain"
	"github.com/pharos-audit/pharos/internal/engine"
)

// setupTestLogger creates a logger for tests
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func testTask(t *testing.T, url string, timeout time.Duration) *domain.AuditTask {
	t.Helper()
	task, err := domain.NewAuditTask(url, 0, domain.AuditSettings{
		Device:  domain.DeviceDesktop,
		Timeout: timeout,
	})
	require.NoError(t, err)
	return task
}

// abortableSession builds a mock session that honors the real session
// contract: Run blocks until either the context or Close aborts it, and
// Close is idempotent.
func abortableSession(settings domain.AuditSettings) *engine.MockSession {
	sess := engine.NewMockSession(settings)
	aborted := make(chan struct{})
	var closeOnce sync.Once

	sess.RunFn = func(ctx context.Context, targetURL string) (*domain.Report, error) {
		select {
		case <-aborted:
			return nil, errors.New("session torn down")
		case <-ctx.Done():
			return nil, fmt.Errorf("navigation canceled: %w", ctx.Err())
		}
	}
	sess.CloseFn = func() error {
		closeOnce.Do(func() { close(aborted) })
		return nil
	}
	return sess
}

func TestNewExecutor(t *testing.T) {
	logger := setupTestLogger()

	_, err := NewExecutor(nil, DefaultExecutorConfig(), logger)
	assert.Error(t, err)

	_, err = NewExecutor(engine.NewMockEngine(), DefaultExecutorConfig(), nil)
	assert.Error(t, err)

	executor, err := NewExecutor(engine.NewMockEngine(), ExecutorConfig{}, logger)
	require.NoError(t, err)
	assert.Equal(t, DefaultKillGrace, executor.config.KillGrace)
}

func TestExecutor_Execute_Success(t *testing.T) {
	eng := engine.NewMockEngine()
	var sess *engine.MockSession
	eng.NewSessionFn = func(settings domain.AuditSettings) (engine.Session, error) {
		sess = engine.NewMockSession(settings)
		return sess, nil
	}

	executor, err := NewExecutor(eng, DefaultExecutorConfig(), setupTestLogger())
	require.NoError(t, err)

	attempt := executor.Execute(context.Background(), testTask(t, "https://example.com", time.Second))

	require.NoError(t, attempt.Err)
	require.NotNil(t, attempt.Report)
	assert.Equal(t, "https://example.com", attempt.Report.URL)
	assert.False(t, attempt.EndedAt.Before(attempt.StartedAt))
	assert.Equal(t, attempt.EndedAt.Sub(attempt.StartedAt), attempt.Duration)

	// The session is released even though the attempt succeeded.
	assert.GreaterOrEqual(t, sess.Closes.Load(), int64(1))
}

func TestExecutor_Execute_RunError(t *testing.T) {
	eng := engine.NewMockEngine()
	var sess *engine.MockSession
	eng.NewSessionFn = func(settings domain.AuditSettings) (engine.Session, error) {
		sess = engine.NewMockSession(settings)
		sess.RunFn = func(ctx context.Context, targetURL string) (*domain.Report, error) {
			return nil, fmt.Errorf("%w: connection refused", engine.ErrNetwork)
		}
		return sess, nil
	}

	executor, err := NewExecutor(eng, DefaultExecutorConfig(), setupTestLogger())
	require.NoError(t, err)

	attempt := executor.Execute(context.Background(), testTask(t, "https://example.com", time.Second))

	require.Error(t, attempt.Err)
	assert.Nil(t, attempt.Report)
	assert.ErrorIs(t, attempt.Err, engine.ErrNetwork)
	assert.GreaterOrEqual(t, sess.Closes.Load(), int64(1))
}

func TestExecutor_Execute_SessionOpenError(t *testing.T) {
	eng := engine.NewMockEngine()
	eng.NewSessionFn = func(settings domain.AuditSettings) (engine.Session, error) {
		return nil, fmt.Errorf("%w: browser binary missing", engine.ErrEngine)
	}

	executor, err := NewExecutor(eng, DefaultExecutorConfig(), setupTestLogger())
	require.NoError(t, err)

	attempt := executor.Execute(context.Background(), testTask(t, "https://example.com", time.Second))

	require.Error(t, attempt.Err)
	assert.ErrorIs(t, attempt.Err, engine.ErrEngine)
}

func TestExecutor_Execute_ForceKill(t *testing.T) {
	eng := engine.NewMockEngine()
	var sess *engine.MockSession
	eng.NewSessionFn = func(settings domain.AuditSettings) (engine.Session, error) {
		sess = abortableSession(settings)
		return sess, nil
	}

	executor, err := NewExecutor(eng, ExecutorConfig{KillGrace: 40 * time.Millisecond}, setupTestLogger())
	require.NoError(t, err)

	// The session ignores its own timeout, so the watchdog has to step in
	// at timeout plus grace.
	task := testTask(t, "https://example.com", 40*time.Millisecond)
	started := time.Now()
	attempt := executor.Execute(context.Background(), task)
	elapsed := time.Since(started)

	require.Error(t, attempt.Err)
	assert.ErrorIs(t, attempt.Err, ErrHardDeadline)
	assert.Equal(t, domain.FailureTimeout, Classify(attempt.Err))

	// Killed after the full budget, not before.
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
	assert.GreaterOrEqual(t, sess.Closes.Load(), int64(1))
}

func TestExecutor_Execute_UnresponsiveSession(t *testing.T) {
	eng := engine.NewMockEngine()
	var sess *engine.MockSession
	eng.NewSessionFn = func(settings domain.AuditSettings) (engine.Session, error) {
		sess = engine.NewMockSession(settings)
		sess.RunFn = func(ctx context.Context, targetURL string) (*domain.Report, error) {
			// Ignores both the context and Close.
			select {}
		}
		return sess, nil
	}

	executor, err := NewExecutor(eng, ExecutorConfig{KillGrace: 20 * time.Millisecond}, setupTestLogger())
	require.NoError(t, err)

	done := make(chan Attempt, 1)
	go func() {
		done <- executor.Execute(context.Background(), testTask(t, "https://example.com", 20*time.Millisecond))
	}()

	// The worker must get its attempt back even though the session never
	// releases; the stuck goroutine is abandoned.
	select {
	case attempt := <-done:
		require.Error(t, attempt.Err)
		assert.ErrorIs(t, attempt.Err, ErrHardDeadline)
		assert.GreaterOrEqual(t, sess.Closes.Load(), int64(1))
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for executor to abandon the attempt")
	}
}

func TestExecutor_Execute_ContextCanceled(t *testing.T) {
	eng := engine.NewMockEngine()
	var sess *engine.MockSession
	eng.NewSessionFn = func(settings domain.AuditSettings) (engine.Session, error) {
		sess = abortableSession(settings)
		return sess, nil
	}

	executor, err := NewExecutor(eng, DefaultExecutorConfig(), setupTestLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Attempt, 1)
	go func() {
		done <- executor.Execute(ctx, testTask(t, "https://example.com", 10*time.Second))
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case attempt := <-done:
		require.Error(t, attempt.Err)
		assert.ErrorIs(t, attempt.Err, context.Canceled)
		assert.Equal(t, domain.FailureCanceled, Classify(attempt.Err))
		assert.GreaterOrEqual(t, sess.Closes.Load(), int64(1))
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for canceled attempt to return")
	}
}

func TestExecutor_Execute_FreshSessionPerAttempt(t *testing.T) {
	eng := engine.NewMockEngine()
	executor, err := NewExecutor(eng, DefaultExecutorConfig(), setupTestLogger())
	require.NoError(t, err)

	task := testTask(t, "https://example.com", time.Second)
	_ = executor.Execute(context.Background(), task)
	_ = executor.Execute(context.Background(), task)
	_ = executor.Execute(context.Background(), task)

	// Every attempt opens its own execution context.
	assert.Equal(t, int64(3), eng.SessionsOpened.Load())
}

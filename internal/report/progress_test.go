package report

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharos-audit/pharos/internal/audit"
	"github.com/pharos-audit/pharos/internal/domain"
)

func TestProgressLogger_HandleProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handler := NewProgressLogger(logger)

	task, err := domain.NewAuditTask("https://example.com", 2, testSettings())
	require.NoError(t, err)
	batchID := uuid.New()

	tests := []struct {
		name     string
		state    domain.TaskState
		attempts int
		want     string
	}{
		{name: "running", state: domain.StateRunning, attempts: 1, want: "auditing target"},
		{name: "succeeded", state: domain.StateSucceeded, attempts: 1, want: "target audit succeeded"},
		{name: "failed", state: domain.StateFailed, attempts: 2, want: "target audit failed"},
		{name: "pending", state: domain.StatePending, attempts: 0, want: "task state changed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			event := audit.NewProgressEvent(batchID, task, 5, tt.state, tt.attempts)

			err := handler.HandleProgress(context.Background(), event)
			require.NoError(t, err, "Progress logging should never return an error")

			out := buf.String()
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "position=3/5", "Position should be one-based over the batch total")
		})
	}
}

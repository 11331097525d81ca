package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pharos-audit/pharos/internal/audit"
	"github.com/pharos-audit/pharos/internal/domain"
	"github.com/pharos-audit/pharos/internal/redact"
)

// ProgressLogger subscribes to task lifecycle events and writes them to the
// structured log so a long batch shows signs of life while it runs.
type ProgressLogger struct {
	logger *slog.Logger
}

// NewProgressLogger creates a handler that logs progress events.
func NewProgressLogger(logger *slog.Logger) *ProgressLogger {
	return &ProgressLogger{
		logger: logger.With("component", "progress"),
	}
}

// HandleProgress implements audit.ProgressHandler. It never returns an
// error; a log line that cannot be written must not disturb the batch.
func (p *ProgressLogger) HandleProgress(_ context.Context, event *audit.ProgressEvent) error {
	position := fmt.Sprintf("%d/%d", event.Index+1, event.Total)

	switch event.State {
	case domain.StateRunning:
		p.logger.Info("auditing target",
			"target", redact.URL(event.TargetURL),
			"position", position,
			"task_id", event.TaskID)
	case domain.StateSucceeded:
		p.logger.Info("target audit succeeded",
			"target", redact.URL(event.TargetURL),
			"position", position,
			"attempts", event.Attempts)
	case domain.StateFailed:
		p.logger.Warn("target audit failed",
			"target", redact.URL(event.TargetURL),
			"position", position,
			"attempts", event.Attempts)
	default:
		p.logger.Debug("task state changed",
			"target", redact.URL(event.TargetURL),
			"position", position,
			"state", event.State)
	}
	return nil
}

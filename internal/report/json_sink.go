package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pharos-audit/pharos/internal/domain"
)

// JSONSink writes one JSON file per outcome plus a summary.json into the
// output directory.
type JSONSink struct {
	dir    string
	logger *slog.Logger
}

// NewJSONSink creates a JSONSink, creating the output directory if needed.
func NewJSONSink(dir string, logger *slog.Logger) (*JSONSink, error) {
	if dir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &JSONSink{
		dir:    dir,
		logger: logger.With("component", "json_sink"),
	}, nil
}

// WriteOutcome persists one task's outcome as an indented JSON file.
func (s *JSONSink) WriteOutcome(ctx context.Context, outcome *domain.TaskOutcome) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	path := filepath.Join(s.dir, outcomeFileName(outcome, "json"))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	s.logger.Debug("wrote outcome report", "path", path, "url", outcome.TargetURL)
	return nil
}

// WriteSummary persists the batch summary as summary.json.
func (s *JSONSink) WriteSummary(ctx context.Context, summary *domain.BatchSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	path := filepath.Join(s.dir, "summary.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}

	s.logger.Info("wrote batch summary", "path", path)
	return nil
}

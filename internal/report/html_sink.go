package report

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pharos-audit/pharos/internal/domain"
)

//go:embed templates/summary.html.tmpl
var templateFS embed.FS

// HTMLSink collects outcomes while the batch runs and renders a single
// index.html dashboard when the summary arrives.
type HTMLSink struct {
	dir    string
	logger *slog.Logger
	tmpl   *template.Template

	mu       sync.Mutex
	outcomes []*domain.TaskOutcome
}

// htmlReport is the template's data root.
type htmlReport struct {
	Summary     *domain.BatchSummary
	Outcomes    []*domain.TaskOutcome
	GeneratedAt time.Time
}

// NewHTMLSink creates an HTMLSink, creating the output directory if needed.
func NewHTMLSink(dir string, logger *slog.Logger) (*HTMLSink, error) {
	if dir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmpl, err := template.New("summary.html.tmpl").Funcs(template.FuncMap{
		"ms": func(d time.Duration) int64 {
			return d.Milliseconds()
		},
		"pct": func(score float64) int {
			return int(score * 100)
		},
	}).ParseFS(templateFS, "templates/summary.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary template: %w", err)
	}

	return &HTMLSink{
		dir:    dir,
		logger: logger.With("component", "html_sink"),
		tmpl:   tmpl,
	}, nil
}

// WriteOutcome buffers the outcome until the summary triggers rendering.
func (s *HTMLSink) WriteOutcome(ctx context.Context, outcome *domain.TaskOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
	return nil
}

// WriteSummary renders index.html from the buffered outcomes, ordered by
// submission index.
func (s *HTMLSink) WriteSummary(ctx context.Context, summary *domain.BatchSummary) error {
	s.mu.Lock()
	outcomes := make([]*domain.TaskOutcome, len(s.outcomes))
	copy(outcomes, s.outcomes)
	s.mu.Unlock()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Index < outcomes[j].Index
	})

	path := filepath.Join(s.dir, "index.html")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create HTML summary: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	data := htmlReport{
		Summary:     summary,
		Outcomes:    outcomes,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render HTML summary: %w", err)
	}

	s.logger.Info("wrote HTML summary", "path", path, "outcomes", len(outcomes))
	return nil
}

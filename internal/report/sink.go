// Package report persists audit results: JSON report files, a rendered
// HTML summary, structured progress logging, and optional Postgres
// history. Sinks are tolerant by contract: the orchestrator logs their
// errors and keeps going, so a full disk or an unreachable database never
// fails a batch.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/pharos-audit/pharos/internal/domain"
)

// Sink receives terminal outcomes while the batch runs and the summary
// once it finishes.
type Sink interface {
	WriteOutcome(ctx context.Context, outcome *domain.TaskOutcome) error
	WriteSummary(ctx context.Context, summary *domain.BatchSummary) error
}

// outcomeFileName builds a stable per-task file name: the submission index
// keeps listings in batch order, the slug keeps them greppable.
func outcomeFileName(outcome *domain.TaskOutcome, ext string) string {
	return fmt.Sprintf("report-%03d-%s.%s", outcome.Index, urlSlug(outcome.TargetURL), ext)
}

// urlSlug reduces a URL to a short filesystem-safe fragment.
func urlSlug(raw string) string {
	s := raw
	for _, prefix := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune('-')
		}
	}

	slug := strings.Trim(b.String(), "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	const maxSlugLen = 48
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		slug = "target"
	}
	return slug
}

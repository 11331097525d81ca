package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharos-audit/pharos/internal/domain"
)

func TestNewHTMLSink_Validation(t *testing.T) {
	logger := setupTestLogger()

	_, err := NewHTMLSink("", logger)
	assert.Error(t, err, "Should reject empty output directory")

	_, err = NewHTMLSink(t.TempDir(), nil)
	assert.Error(t, err, "Should reject nil logger")
}

func TestHTMLSink_RendersSummary(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewHTMLSink(dir, setupTestLogger())
	require.NoError(t, err)

	ctx := context.Background()

	// Buffer outcomes out of order; the dashboard should sort by index.
	second := succeededOutcome(t, "https://example.com/pricing", 1)
	first := failedOutcome(t, "https://broken.example.com", 0)
	require.NoError(t, sink.WriteOutcome(ctx, second))
	require.NoError(t, sink.WriteOutcome(ctx, first))

	summary := &domain.BatchSummary{
		BatchID:    uuid.New(),
		Total:      2,
		Succeeded:  1,
		Failed:     1,
		StartedAt:  time.Now().UTC().Add(-10 * time.Second),
		FinishedAt: time.Now().UTC(),
		Duration:   10 * time.Second,
	}
	require.NoError(t, sink.WriteSummary(ctx, summary))

	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err, "WriteSummary should render index.html")

	html := string(data)
	assert.Contains(t, html, "https://example.com/pricing")
	assert.Contains(t, html, "https://broken.example.com")
	assert.Contains(t, html, "connection refused", "Failure message should appear in the table")
	assert.Contains(t, html, "93", "Score should render as a percentage")

	brokenPos := strings.Index(html, "https://broken.example.com")
	pricingPos := strings.Index(html, "https://example.com/pricing")
	assert.Less(t, brokenPos, pricingPos, "Rows should be ordered by submission index")
}

func TestHTMLSink_EmptyBatch(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewHTMLSink(dir, setupTestLogger())
	require.NoError(t, err)

	summary := &domain.BatchSummary{
		BatchID:    uuid.New(),
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	}
	require.NoError(t, sink.WriteSummary(context.Background(), summary))

	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err, "An empty batch should still produce a dashboard")
	assert.Contains(t, string(data), "<html")
}

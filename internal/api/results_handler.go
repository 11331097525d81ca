package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pharos-audit/pharos/internal/domain"
)

// ResultsHandler serves audit results from the report output directory.
// The directory is read on every request, so results from a batch that
// finishes while the server runs appear without a restart.
type ResultsHandler struct {
	dir    string
	logger *slog.Logger
}

// NewResultsHandler creates a handler rooted at the given report directory.
func NewResultsHandler(dir string, logger *slog.Logger) (*ResultsHandler, error) {
	if dir == "" {
		return nil, errors.New("report directory cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &ResultsHandler{
		dir:    dir,
		logger: logger.With("component", "results_handler"),
	}, nil
}

// GetSummary handles GET /api/summary by serving the latest batch summary.
func (h *ResultsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(filepath.Join(h.dir, "summary.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			RespondWithError(w, r, http.StatusNotFound, "No batch summary available yet", err)
			return
		}
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to read batch summary", err)
		return
	}

	var summary domain.BatchSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "Stored batch summary is corrupt", err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, summary)
}

// GetOutcomes handles GET /api/outcomes by serving every stored task
// outcome in submission order.
func (h *ResultsHandler) GetOutcomes(w http.ResponseWriter, r *http.Request) {
	paths, err := filepath.Glob(filepath.Join(h.dir, "report-*.json"))
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to list reports", err)
		return
	}

	// Glob returns paths sorted, and file names are index-prefixed, so
	// this is already submission order.
	outcomes := make([]*domain.TaskOutcome, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			h.logger.Warn("skipping unreadable report file", "path", path, "error", err)
			continue
		}
		var outcome domain.TaskOutcome
		if err := json.Unmarshal(data, &outcome); err != nil {
			h.logger.Warn("skipping corrupt report file", "path", path, "error", err)
			continue
		}
		outcomes = append(outcomes, &outcome)
	}

	RespondWithJSON(w, r, http.StatusOK, outcomes)
}

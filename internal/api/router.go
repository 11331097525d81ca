package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the application router: the read-only results API
// under /api, a health check, and the report directory itself (dashboard
// included) served at the root.
func NewRouter(reportDir string, logger *slog.Logger) (http.Handler, error) {
	handler, err := NewResultsHandler(reportDir, logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TraceMiddleware(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", handler.GetSummary)
		r.Get("/outcomes", handler.GetOutcomes)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	// Serve the rendered dashboard and raw report files.
	r.Handle("/*", http.FileServer(http.Dir(reportDir)))

	return r, nil
}

package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// contextKey is the key type for values this package stores in a request
// context.
type contextKey string

// traceIDKey is the context key for the per-request trace ID.
const traceIDKey contextKey = "traceID"

// GetTraceID retrieves the trace ID from the context. Returns an empty
// string if none was set.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// TraceMiddleware attaches a random trace ID to each request context and
// logs the request start. Apply it early so every later handler and error
// response can correlate with the logs.
func TraceMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := generateTraceID()
			ctx := context.WithValue(r.Context(), traceIDKey, traceID)

			logger.Debug("request started",
				"trace_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// generateTraceID returns a 32-character hex ID. If the random source
// fails it falls back to a timestamp-based ID rather than a static value.
func generateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

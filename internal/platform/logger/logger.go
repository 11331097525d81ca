// Package logger provides structured logging functionality for the application.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pharos-audit/pharos/internal/config"
)

// Setup initializes and configures the application's logging system based
// on the provided configuration. It creates a structured JSON logger with
// the appropriate log level and sets it as the default logger for the
// application.
//
// Logs go to stderr so they never interleave with report output on stdout.
func Setup(cfg config.ServerConfig) *slog.Logger {
	return New(os.Stderr, cfg.LogLevel)
}

// New creates a structured JSON logger writing to w at the given level and
// installs it as the process default. An unknown level falls back to info
// with a warning.
func New(w io.Writer, logLevel string) *slog.Logger {
	// Parse the log level from configuration (case-insensitive)
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error", "fatal":
		level = slog.LevelError
	default:
		level = slog.LevelInfo

		// Create a temporary logger to output the warning
		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", logLevel,
			"default_level", "info")
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	logger := slog.New(slog.NewJSONHandler(w, opts))

	// Set this logger as the default for the application so the slog
	// package functions (slog.Info, slog.Error, etc.) use it too.
	slog.SetDefault(logger)

	return logger
}

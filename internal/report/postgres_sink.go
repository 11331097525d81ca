package report

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/pharos-audit/pharos/internal/domain"
	"github.com/pharos-audit/pharos/internal/redact"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const insertOutcomeSQL = `
INSERT INTO audit_outcomes (
    task_id, target_url, task_index, status,
    failure_kind, failure_message, attempts, duration_ms,
    device, status_code, score, ttfb_ms, total_ms, transfer_bytes,
    finished_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

const insertSummarySQL = `
INSERT INTO audit_summaries (
    batch_id, total, succeeded, failed, started_at, finished_at, duration_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7)`

// PostgresSink archives outcomes and summaries into Postgres so audit
// history survives across runs.
type PostgresSink struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSink connects to the database, applies pending migrations,
// and returns a sink ready to record audit history.
func NewPostgresSink(ctx context.Context, dbURL string, logger *slog.Logger) (*PostgresSink, error) {
	if dbURL == "" {
		return nil, errors.New("database URL cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool with reasonable defaults
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", redact.DatabaseURL(dbURL), err)
	}

	if err := applyMigrations(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("audit history database ready", "url", redact.DatabaseURL(dbURL))
	return &PostgresSink{
		db:     db,
		logger: logger.With("component", "postgres_sink"),
	}, nil
}

// WriteOutcome inserts one task's terminal outcome into the history table.
func (s *PostgresSink) WriteOutcome(ctx context.Context, outcome *domain.TaskOutcome) error {
	var (
		failureKind    sql.NullString
		failureMessage sql.NullString
		device         sql.NullString
		statusCode     sql.NullInt32
		score          sql.NullFloat64
		ttfbMs         sql.NullInt64
		totalMs        sql.NullInt64
		transferBytes  sql.NullInt64
	)
	if outcome.Err != nil {
		failureKind = sql.NullString{String: string(outcome.Err.Kind), Valid: true}
		failureMessage = sql.NullString{String: outcome.Err.Message, Valid: true}
	}
	if outcome.Report != nil {
		device = sql.NullString{String: string(outcome.Report.Device), Valid: true}
		statusCode = sql.NullInt32{Int32: int32(outcome.Report.StatusCode), Valid: true}
		score = sql.NullFloat64{Float64: outcome.Report.Score, Valid: true}
		ttfbMs = sql.NullInt64{Int64: outcome.Report.Timing.TTFB.Milliseconds(), Valid: true}
		totalMs = sql.NullInt64{Int64: outcome.Report.Timing.Total.Milliseconds(), Valid: true}
		transferBytes = sql.NullInt64{Int64: outcome.Report.TransferBytes, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, insertOutcomeSQL,
		outcome.TaskID,
		outcome.TargetURL,
		outcome.Index,
		string(outcome.Status),
		failureKind,
		failureMessage,
		outcome.Attempts,
		outcome.Duration.Milliseconds(),
		device,
		statusCode,
		score,
		ttfbMs,
		totalMs,
		transferBytes,
		outcome.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// WriteSummary inserts the batch summary into the history table.
func (s *PostgresSink) WriteSummary(ctx context.Context, summary *domain.BatchSummary) error {
	_, err := s.db.ExecContext(ctx, insertSummarySQL,
		summary.BatchID,
		summary.Total,
		summary.Succeeded,
		summary.Failed,
		summary.StartedAt,
		summary.FinishedAt,
		summary.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// applyMigrations brings the history schema up to date using the embedded
// migration files.
func applyMigrations(db *sql.DB, logger *slog.Logger) error {
	goose.SetLogger(&slogGooseLogger{logger: logger})
	goose.SetTableName("pharos_schema_migrations")
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// slogGooseLogger adapts the goose logger interface to use slog
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf implements the goose.Logger Printf method by forwarding messages to slog
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Fatalf implements the goose.Logger Fatalf method by forwarding error
// messages to slog. It deliberately does not exit; the error propagates to
// the caller, which decides how to finish.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

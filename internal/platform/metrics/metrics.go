// Package metrics records batch counters through OpenTelemetry. The
// recorder instruments against the global meter provider, so it works as
// a no-op until Setup installs an exporter.
package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/pharos-audit/pharos/internal/domain"
)

const instrumentationName = "github.com/pharos-audit/pharos"

// Setup installs a meter provider that periodically exports metrics to
// stdout. It returns a shutdown function that flushes pending metrics;
// callers must invoke it before exiting.
func Setup() (func(context.Context) error, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}

// Recorder implements batch metric recording with OpenTelemetry counters.
type Recorder struct {
	logger *slog.Logger

	tasks        metric.Int64Counter
	attempts     metric.Int64Counter
	batches      metric.Int64Counter
	sinkFailures metric.Int64Counter
	duration     metric.Float64Histogram
}

// NewRecorder creates a Recorder with its instruments registered against
// the global meter provider.
func NewRecorder(logger *slog.Logger) (*Recorder, error) {
	meter := otel.Meter(instrumentationName)

	tasks, err := meter.Int64Counter("pharos.audit.tasks",
		metric.WithDescription("Completed audit tasks by result"),
		metric.WithUnit("{task}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create task counter: %w", err)
	}

	attempts, err := meter.Int64Counter("pharos.audit.attempts",
		metric.WithDescription("Execution attempts consumed, including retries"),
		metric.WithUnit("{attempt}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt counter: %w", err)
	}

	batches, err := meter.Int64Counter("pharos.audit.batches",
		metric.WithDescription("Completed audit batches"),
		metric.WithUnit("{batch}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create batch counter: %w", err)
	}

	sinkFailures, err := meter.Int64Counter("pharos.report.sink_failures",
		metric.WithDescription("Outcome or summary writes rejected by a sink"),
		metric.WithUnit("{failure}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create sink failure counter: %w", err)
	}

	duration, err := meter.Float64Histogram("pharos.audit.batch.duration",
		metric.WithDescription("Wall-clock batch duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &Recorder{
		logger:       logger.With("component", "metrics"),
		tasks:        tasks,
		attempts:     attempts,
		batches:      batches,
		sinkFailures: sinkFailures,
		duration:     duration,
	}, nil
}

// RecordOutcome counts one terminal task outcome.
func (r *Recorder) RecordOutcome(ctx context.Context, outcome *domain.TaskOutcome) {
	attrs := []attribute.KeyValue{
		attribute.String("result", string(outcome.Status)),
	}
	if outcome.Err != nil {
		attrs = append(attrs, attribute.String("failure_kind", string(outcome.Err.Kind)))
	}

	r.tasks.Add(ctx, 1, metric.WithAttributes(attrs...))
	r.attempts.Add(ctx, int64(outcome.Attempts))
}

// RecordBatch counts one completed batch and records its duration.
func (r *Recorder) RecordBatch(ctx context.Context, summary *domain.BatchSummary) {
	r.batches.Add(ctx, 1)
	r.duration.Record(ctx, float64(summary.Duration.Milliseconds()))
}

// RecordSinkFailure counts one rejected sink write.
func (r *Recorder) RecordSinkFailure(ctx context.Context) {
	r.sinkFailures.Add(ctx, 1)
}

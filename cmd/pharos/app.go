package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pharos-audit/pharos/internal/audit"
	"github.com/pharos-audit/pharos/internal/config"
	"github.com/pharos-audit/pharos/internal/domain"
	"github.com/pharos-audit/pharos/internal/engine"
	"github.com/pharos-audit/pharos/internal/input"
	"github.com/pharos-audit/pharos/internal/platform/metrics"
	"github.com/pharos-audit/pharos/internal/report"
)

// application holds the shared dependencies for one batch run so that
// construction, execution, and cleanup stay in one place.
type application struct {
	config *config.Config
	logger *slog.Logger

	orchestrator *audit.Orchestrator
	loader       *input.Loader

	// Resources that need explicit cleanup.
	historySink     *report.PostgresSink
	metricsShutdown func(context.Context) error
}

// newApplication creates the engine, orchestrator, and every configured
// sink. Any error here is a configuration problem; nothing has run yet.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: log,
	}

	eng, err := engine.NewProbeEngine(log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize probe engine: %w", err)
	}

	batchCfg := audit.DefaultBatchConfig()
	batchCfg.Concurrency = cfg.Audit.Concurrency
	batchCfg.Settings = domain.AuditSettings{
		Device:  domain.DeviceMode(cfg.Audit.Device),
		Timeout: cfg.Audit.Timeout(),
	}

	app.orchestrator, err = audit.NewOrchestrator(eng, batchCfg, log)
	if err != nil {
		return nil, err
	}

	app.loader, err = input.NewLoader(log)
	if err != nil {
		return nil, err
	}

	// JSON reports are always written; the rest is opt-in.
	jsonSink, err := report.NewJSONSink(cfg.Report.OutputDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JSON sink: %w", err)
	}
	app.orchestrator.AddSink(jsonSink)

	if cfg.Report.HTML {
		htmlSink, err := report.NewHTMLSink(cfg.Report.OutputDir, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize HTML sink: %w", err)
		}
		app.orchestrator.AddSink(htmlSink)
	}

	if cfg.Database.URL != "" {
		historySink, err := report.NewPostgresSink(ctx, cfg.Database.URL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize audit history: %w", err)
		}
		app.historySink = historySink
		app.orchestrator.AddSink(historySink)
	}

	if cfg.Metrics.Enabled {
		shutdown, err := metrics.Setup()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		app.metricsShutdown = shutdown

		recorder, err := metrics.NewRecorder(log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize metrics recorder: %w", err)
		}
		app.orchestrator.SetMetrics(recorder)
	}

	emitter := audit.NewInMemoryProgressEmitter(log)
	emitter.RegisterHandler(report.NewProgressLogger(log))
	app.orchestrator.SetProgressEmitter(emitter)

	log.Info("application initialized",
		"concurrency", cfg.Audit.Concurrency,
		"device", cfg.Audit.Device,
		"timeout_seconds", cfg.Audit.TimeoutSeconds,
		"output_dir", cfg.Report.OutputDir,
		"html", cfg.Report.HTML,
		"history", cfg.Database.URL != "",
		"metrics", cfg.Metrics.Enabled)
	return app, nil
}

// resolveTargets loads the target list from a file or from command line
// arguments, but not both.
func (app *application) resolveTargets(path string, args []string) ([]string, error) {
	if path != "" {
		if len(args) > 0 {
			return nil, errors.New("pass targets either as a file or as arguments, not both")
		}
		return app.loader.Load(path)
	}
	return app.loader.FromArgs(args)
}

// runBatch audits the targets and returns the summary.
func (app *application) runBatch(ctx context.Context, targets []string) (*domain.BatchSummary, error) {
	return app.orchestrator.RunBatch(ctx, targets)
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.historySink != nil {
		if err := app.historySink.Close(); err != nil {
			app.logger.Error("error closing audit history database", "error", err)
		}
	}

	if app.metricsShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.metricsShutdown(shutdownCtx); err != nil {
			app.logger.Error("error flushing metrics", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}

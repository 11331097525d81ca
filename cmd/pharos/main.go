// Package main implements the pharos command line interface, which runs
// batches of page performance audits and serves the resulting reports.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pharos-audit/pharos/internal/api"
	"github.com/pharos-audit/pharos/internal/config"
	"github.com/pharos-audit/pharos/internal/platform/logger"
)

// Build-time values injected with -ldflags.
var (
	version = "dev"
)

// Exit codes: success, at least one failed task, configuration or usage
// error. failed==0 in the summary is the only way to exit 0 from run.
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return exitConfig
	}

	// A .env file is optional; only a malformed one is an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env file: %v\n", err)
		return exitConfig
	}

	switch args[0] {
	case "run":
		return runCommand(args[1:])
	case "serve":
		return serveCommand(args[1:])
	case "version":
		fmt.Printf("pharos %s\n", version)
		return exitOK
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage(os.Stderr)
		return exitConfig
	}
}

// runCommand audits a batch of targets and exits 0 only if every task
// succeeded.
func runCommand(args []string) int {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to a pharos.yaml config file")
	targetsPath := flags.String("targets", "", "file with target URLs, plain text or CSV")
	concurrency := flags.Int("concurrency", 0, "worker count override (1-10)")
	device := flags.String("device", "", "device profile override (mobile or desktop)")
	timeoutSeconds := flags.Int("timeout", 0, "per-attempt audit timeout override in seconds")
	if err := flags.Parse(args); err != nil {
		return exitConfig
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return exitConfig
	}
	applyOverrides(cfg, *concurrency, *device, *timeoutSeconds)

	log := logger.Setup(cfg.Server)

	// Batches run to completion: slow audits are cut off by the per-task
	// timeout, not by interrupting the batch. RunBatch still takes the
	// context, so embedding hosts can wire their own trigger.
	ctx := context.Background()

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		return exitConfig
	}
	defer app.cleanup()

	targets, err := app.resolveTargets(*targetsPath, flags.Args())
	if err != nil {
		log.Error("failed to resolve targets", "error", err)
		return exitConfig
	}
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "no audit targets given; pass URLs as arguments or use -targets")
		return exitConfig
	}

	summary, err := app.runBatch(ctx, targets)
	if err != nil {
		log.Error("batch failed before any audit ran", "error", err)
		return exitConfig
	}

	// Logs go to stderr; the operator-facing result goes to stdout.
	fmt.Printf("batch %s: %d targets, %d succeeded, %d failed in %s\n",
		summary.BatchID, summary.Total, summary.Succeeded, summary.Failed,
		summary.Duration.Round(time.Millisecond))
	fmt.Printf("reports written to %s\n", cfg.Report.OutputDir)

	if summary.AllSucceeded() {
		return exitOK
	}
	return exitFailed
}

// serveCommand serves the report directory and the results API until
// interrupted.
func serveCommand(args []string) int {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to a pharos.yaml config file")
	port := flags.Int("port", 0, "listen port override")
	if err := flags.Parse(args); err != nil {
		return exitConfig
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return exitConfig
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log := logger.Setup(cfg.Server)

	router, err := api.NewRouter(cfg.Report.OutputDir, log)
	if err != nil {
		log.Error("failed to initialize router", "error", err)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(cfg.Server.Port, router, log)
	if err := server.Serve(ctx); err != nil {
		log.Error("server error", "error", err)
		return exitFailed
	}
	return exitOK
}

// loadConfig loads from the explicit path when given, otherwise from the
// default search locations and environment.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// applyOverrides lets command line flags win over file and environment
// values. Invalid overrides surface through batch config validation.
func applyOverrides(cfg *config.Config, concurrency int, device string, timeoutSeconds int) {
	if concurrency != 0 {
		cfg.Audit.Concurrency = concurrency
	}
	if device != "" {
		cfg.Audit.Device = device
	}
	if timeoutSeconds != 0 {
		cfg.Audit.TimeoutSeconds = timeoutSeconds
	}
}

func printUsage(w *os.File) {
	fmt.Fprintf(w, `pharos - batch page performance audits

Usage:
  pharos run [flags] [url ...]   audit the given targets
  pharos serve [flags]           serve reports and the results API
  pharos version                 print the version

Run flags:
  -config path       config file (default: pharos.yaml if present)
  -targets path      target list file, plain text or CSV
  -concurrency n     worker count override (1-10)
  -device name       device profile override (mobile or desktop)
  -timeout seconds   per-attempt audit timeout override

Serve flags:
  -config path       config file (default: pharos.yaml if present)
  -port n            listen port override

Exit codes: 0 all audits succeeded, 1 at least one audit failed,
2 configuration or usage error.
`)
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alejandrodnm/edgemachine/config"
	"github.com/alejandrodnm/edgemachine/internal/adapters/notify"
	"github.com/alejandrodnm/edgemachine/internal/adapters/polymarket"
	"github.com/alejandrodnm/edgemachine/internal/adapters/storage"
	"github.com/alejandrodnm/edgemachine/internal/api"
	"github.com/alejandrodnm/edgemachine/internal/application/pipeline"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	job := flag.String("job", "", "run a single job and exit (discover_markets|hydrate_tokens|update_prices|forecast_machine|resolve_markets)")
	table := flag.Bool("table", false, "print events table + scoreboard after a one-shot job")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("edgemachine starting",
		"config", *configPath,
		"job", *job,
		"dsn", cfg.Storage.DSN,
	)

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	runner := pipeline.NewRunner(client, client, store, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *job != "" {
		runJobOnce(ctx, runner, store, *job, *table)
		return
	}

	srv := api.NewServer(store, runner, cfg.Server)
	if err := srv.Run(); err != nil {
		slog.Error("server exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("edgemachine stopped cleanly")
}

// runJobOnce ejecuta un job del pipeline y opcionalmente imprime el estado.
func runJobOnce(ctx context.Context, runner *pipeline.Runner, store *storage.SQLiteStore, name string, table bool) {
	summary, err := runner.Run(ctx, name)
	if err != nil {
		slog.Error("job failed", "job_name", name, "err", err,
			"known_jobs", strings.Join(runner.JobNames(), "|"))
		os.Exit(1)
	}
	slog.Info("job finished", "job_name", name, "summary", summary)

	if !table {
		return
	}

	console := notify.NewConsole()
	events, err := store.ListEvents(ctx, 50)
	if err != nil {
		slog.Error("failed to list events", "err", err)
		os.Exit(1)
	}
	console.PrintEvents(events)

	sb, err := store.Scoreboard(ctx)
	if err != nil {
		slog.Error("failed to load scoreboard", "err", err)
		os.Exit(1)
	}
	console.PrintScoreboard(sb)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

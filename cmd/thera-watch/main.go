package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"thera-watch/internal/config"
	"thera-watch/internal/esi"
	"thera-watch/internal/evescout"
	"thera-watch/internal/logx"
	"thera-watch/internal/metrics"
	"thera-watch/internal/notify"
	"thera-watch/internal/poller"
	"thera-watch/internal/queue"
	"thera-watch/internal/storage"
)

// startupExitCode is the exit status after a fatal startup error.
const startupExitCode = 0

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(startupExitCode)
}

func main() {
	logx.Init(os.Getenv("LOGLEVEL"))
	slog.Info("[thera-watch] starting, running init checks")

	cfg, err := config.Load()
	if err != nil {
		fatal("error loading config", "err", err)
	}
	logx.Init(cfg.LogLevel)
	slog.Info("init checks done", "max_distance", cfg.MaxDistance, "systems", cfg.Systems)

	sink := metrics.Init()
	sink.StartHTTPServer(cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks := notify.Fanout{notify.NewDiscord(cfg.WebhookURL, cfg.HTTPTimeout, sink)}

	if cfg.JournalEnabled() {
		db, err := sql.Open("pgx", cfg.AppDSN())
		if err != nil {
			fatal("error opening journal database", "err", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			fatal("error pinging journal database", "err", err)
		}
		sinks = append(sinks, storage.NewJournal(db))
		slog.Info("notification journal enabled", "host", cfg.DBHost, "db", cfg.DBName)
	}

	if cfg.QueueBackend == "rabbitmq" {
		rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL, cfg.RabbitQueue)
		if err != nil {
			fatal("error connecting to RabbitMQ", "err", err)
		}
		defer rmq.Close()
		sinks = append(sinks, rmq)
		slog.Info("RabbitMQ notification queue enabled", "queue", cfg.RabbitQueue)
	}

	esiClient := esi.New(esi.Options{
		BaseURL:       cfg.ESIBaseURL,
		Datasource:    cfg.ESIDatasource,
		Language:      cfg.ESILanguage,
		Timeout:       cfg.HTTPTimeout,
		RouteCacheTTL: cfg.RouteCacheTTL,
	}, sink)

	p := poller.New(poller.Config{
		Systems:     cfg.Systems,
		MaxDistance: cfg.MaxDistance,
		Interval:    cfg.PollInterval,
		DotlanURL:   cfg.DotlanURL,
	}, esiClient, esiClient, evescout.New(cfg.EveScoutURL, cfg.HTTPTimeout), sinks, sink)

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fatal("poller failed to start", "err", err)
	}

	slog.Info("[thera-watch] stopped")
}

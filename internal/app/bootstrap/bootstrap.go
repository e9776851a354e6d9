package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	reviewqueue "triage/contexts/moderation-safety/review-queue"
	postgresadapter "triage/contexts/moderation-safety/review-queue/adapters/postgres"
	"triage/internal/platform/config"
	"triage/internal/platform/db"
	"triage/internal/platform/httpserver"
	"triage/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	module       reviewqueue.Module
	statsEnabled bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := reviewqueue.NewModule(reviewqueue.Dependencies{
		Reviewables:       repo,
		Scores:            repo,
		Targets:           repo,
		Stats:             repo,
		Outbox:            repo,
		OutboxRepo:        repo,
		UnitOfWork:        repo,
		Clock:             postgresadapter.SystemClock{},
		IDGen:             postgresadapter.UUIDGenerator{},
		DefaultMinScore:   cfg.MinScoreDefaultVisibility,
		TruncateThreshold: cfg.FlagStatsTruncateThreshold,
		TruncateKeep:      cfg.FlagStatsTruncateKeep,
		Logger:            logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := reviewqueue.NewModule(reviewqueue.Dependencies{
		Reviewables:       repo,
		Scores:            repo,
		Targets:           repo,
		Stats:             repo,
		Outbox:            repo,
		OutboxRepo:        repo,
		UnitOfWork:        repo,
		Publisher:         kafka,
		Subscriber:        kafka,
		Clock:             postgresadapter.SystemClock{},
		IDGen:             postgresadapter.UUIDGenerator{},
		DefaultMinScore:   cfg.MinScoreDefaultVisibility,
		TruncateThreshold: cfg.FlagStatsTruncateThreshold,
		TruncateKeep:      cfg.FlagStatsTruncateKeep,
		Logger:            logger,
	})

	return &WorkerApp{
		postgres:     pg,
		module:       module,
		statsEnabled: cfg.EnableStatsTruncationConsumer,
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.statsEnabled {
		if err := w.module.StatsWorker.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		// RunOnce logs its own failures; a broken broker cycle retries on the
		// next tick instead of killing the process.
		_ = w.module.OutboxRelay.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	subjectroster "demesne/contexts/realm-community/subject-roster"
	rosterpostgres "demesne/contexts/realm-community/subject-roster/adapters/postgres"
	rosterworkers "demesne/contexts/realm-community/subject-roster/application/workers"
	treasuryservice "demesne/contexts/realm-economy/treasury-service"
	"demesne/contexts/realm-economy/treasury-service/adapters/memory"
	treasurypostgres "demesne/contexts/realm-economy/treasury-service/adapters/postgres"
	treasuryapp "demesne/contexts/realm-economy/treasury-service/application"
	workerapp "demesne/contexts/realm-economy/treasury-service/application/workers"
	"demesne/internal/platform/config"
	"demesne/internal/platform/db"
	"demesne/internal/platform/httpserver"
	"demesne/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres        *db.Postgres
	distributionJob workerapp.DistributionJob
	outboxRelay     workerapp.OutboxRelay
	payoutConsumer  rosterworkers.DistributionCompletedConsumer
	runScheduler    bool
	runRelay        bool
	pollInterval    time.Duration
	logger          *slog.Logger
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

	treasuryModule, rosterModule := buildModules(pg, cfg, logger)
	server := httpserver.New(treasuryModule, rosterModule, logger, normalizeAddr(cfg.HTTPPort))
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

	treasuryModule, _ := buildModules(pg, cfg, logger)
	treasuryModule.OutboxRelay.Publisher = kafka
	treasuryModule.OutboxRelay.BatchSize = cfg.DistributionBatchSize
	treasuryModule.DistributionJob.BatchSize = cfg.DistributionBatchSize

	return &WorkerApp{
		postgres:        pg,
		distributionJob: treasuryModule.DistributionJob,
		outboxRelay:     treasuryModule.OutboxRelay,
		payoutConsumer: rosterworkers.DistributionCompletedConsumer{
			Subscriber:    kafka,
			Repo:          rosterpostgres.NewRepository(pg.DB, logger),
			ConsumerGroup: "subject-roster-payout-cg",
			Logger:        logger,
		},
		runScheduler:    cfg.EnableDistributionScheduler,
		runRelay:        cfg.EnableOutboxRelay,
		pollInterval:    cfg.DistributionPollInterval,
		logger:          logger,
	}, nil
}

// buildModules wires both contexts onto one database. The treasury reads
// roster tables through its own repository projection; it never imports the
// roster packages.
func buildModules(pg *db.Postgres, cfg config.Config, logger *slog.Logger) (treasuryservice.Module, subjectroster.Module) {
	treasuryRepo := treasurypostgres.NewRepository(pg.DB, logger)
	treasuryModule := treasuryservice.NewModule(treasuryservice.Dependencies{
		Repository: treasuryRepo,
		Subjects:   treasuryRepo,
		Eligibility: treasuryapp.StandardEligibility{
			ReputationFloor: treasuryapp.DefaultReputationFloor,
			CheckInWindow:   treasuryapp.DefaultCheckInWindow,
		},
		Merit:      treasuryapp.StandardMerit{},
		Pool:       treasuryRepo,
		Locker:     memory.NewLocker(cfg.DistributionLockTimeout),
		Clock:      treasurypostgres.SystemClock{},
		IDGen:      treasurypostgres.UUIDGenerator{},
		Outbox:     treasuryRepo,
		OutboxRepo: treasuryRepo,
		Logger:     logger,
	})

	rosterRepo := rosterpostgres.NewRepository(pg.DB, logger)
	rosterModule := subjectroster.NewModule(subjectroster.Dependencies{
		Repository: rosterRepo,
		Clock:      rosterpostgres.SystemClock{},
		Logger:     logger,
	})
	return treasuryModule, rosterModule
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
	if err := w.payoutConsumer.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"scheduler_enabled", w.runScheduler,
		"outbox_relay_enabled", w.runRelay,
	)

	for {
		if w.runScheduler {
			if err := w.distributionJob.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.runRelay {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
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

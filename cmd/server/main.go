/**
 * @description
 * This is the main entry point for the ledger service. It initializes
 * configuration, storage (PostgreSQL, or the in-memory store in dev mode),
 * the event producer, the reconciliation scheduler and the HTTP server, then
 * wires everything together and runs until interrupted.
 *
 * @dependencies
 * - log/slog, net/http, os/signal: Standard Go libraries.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Transfer rate limiting.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages.
 * - pkg/rabbitmq: Transfer event publishing.
 */

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/SamMDev/Console-Banking-App/internal/api"
	"github.com/SamMDev/Console-Banking-App/internal/app"
	"github.com/SamMDev/Console-Banking-App/internal/config"
	"github.com/SamMDev/Console-Banking-App/internal/store"
	"github.com/SamMDev/Console-Banking-App/internal/store/memory"
	"github.com/SamMDev/Console-Banking-App/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo      store.Repository
		directory store.CustomerDirectory
		registrar store.CustomerRegistrar
	)
	if cfg.DevMode {
		logger.Info("starting with in-memory storage", "mode", "dev")
		mem := memory.New(cfg.LockTimeout())
		repo, directory, registrar = mem, mem, mem
	} else {
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			logger.Error("database url parse failed", "err", err)
			os.Exit(1)
		}
		poolConfig.MaxConns = 20
		poolConfig.MinConns = 2
		poolConfig.MaxConnLifetime = 30 * time.Minute
		poolConfig.MaxConnIdleTime = 5 * time.Minute

		dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			logger.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		defer dbpool.Close()

		pg := store.NewPostgresRepository(dbpool, cfg.LockTimeout())
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
		logger.Info("database connected")
		repo, directory, registrar = pg, pg, pg
	}

	var events rabbitmq.Publisher
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.TransferEventQueue)
		if err != nil {
			logger.Warn("rabbitmq unavailable, continuing with fallback producer", "err", err)
			events = &rabbitmq.FallbackProducer{Logger: logger}
		} else {
			events = producer
		}
	} else {
		events = &rabbitmq.FallbackProducer{Logger: logger}
	}
	defer events.Close()

	journal := app.NewFailureJournal()
	service := app.NewService(repo, directory, events, journal, logger.With("component", "ledger"))

	if cfg.SeedCustomers > 0 {
		if err := seedCustomers(ctx, registrar, service, cfg.SeedCustomers, logger); err != nil {
			logger.Error("seeding demo customers failed", "err", err)
			os.Exit(1)
		}
	}

	var limiter *api.RedisTransferRateLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis url parse failed, rate limiting disabled", "err", err)
		} else {
			limiter = api.NewRedisTransferRateLimiter(redis.NewClient(opts), cfg.RateLimitPrefix)
		}
	}

	jobs := app.NewJobs(repo, journal, logger.With("component", "reconcile"))
	scheduler := app.NewScheduler(jobs, logger.With("component", "scheduler"), cfg.ReconcileSchedule)
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	handlers := api.NewLedgerHandlers(service, limiter, cfg.TransferRatePerMin, logger.With("component", "api"))
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: api.LedgerRoutes(handlers),
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "err", err)
	}
	logger.Info("shutdown complete")
}

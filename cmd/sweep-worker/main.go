package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rodrigoferraz/autovendas-backend/internal/negotiations"
	"github.com/rodrigoferraz/autovendas-backend/internal/sweep"
	"github.com/rodrigoferraz/autovendas-backend/internal/vehicles"
	"github.com/rodrigoferraz/autovendas-backend/pkg/config"
	"github.com/rodrigoferraz/autovendas-backend/pkg/db"
	"github.com/rodrigoferraz/autovendas-backend/pkg/logger"
	"github.com/rodrigoferraz/autovendas-backend/pkg/metrics"
	"github.com/rodrigoferraz/autovendas-backend/pkg/migrate"
	"github.com/rodrigoferraz/autovendas-backend/pkg/redis"
)

const lockKeyFormat = "av:sweep-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweep-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sweep-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	// The worker mutates lifecycle state only; no notifier is wired so the
	// sweep never emails anyone.
	engine, err := negotiations.NewService(
		negotiations.NewRepository(dbClient.DB()),
		vehicles.NewCatalog(dbClient.DB()),
		dbClient,
		nil,
		logg,
		cfg.Negotiation,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create negotiation engine", err)
		os.Exit(1)
	}

	expireJob, err := sweep.NewExpireJob(engine, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create expire job", err)
		os.Exit(1)
	}
	purgeJob, err := sweep.NewPurgeJob(engine, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create purge job", err)
		os.Exit(1)
	}

	lock, err := sweep.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := sweep.NewService(sweep.ServiceParams{
		Logger:   logg,
		Registry: sweep.NewRegistry(expireJob, purgeJob),
		Lock:     lock,
		Metrics:  metrics.NewSweepJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Sweep.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting sweep worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweep worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sweep worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

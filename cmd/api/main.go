package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rodrigoferraz/autovendas-backend/api/routes"
	"github.com/rodrigoferraz/autovendas-backend/internal/negotiations"
	"github.com/rodrigoferraz/autovendas-backend/internal/notifications"
	"github.com/rodrigoferraz/autovendas-backend/internal/vehicles"
	"github.com/rodrigoferraz/autovendas-backend/pkg/config"
	"github.com/rodrigoferraz/autovendas-backend/pkg/db"
	"github.com/rodrigoferraz/autovendas-backend/pkg/guard"
	"github.com/rodrigoferraz/autovendas-backend/pkg/logger"
	"github.com/rodrigoferraz/autovendas-backend/pkg/metrics"
	"github.com/rodrigoferraz/autovendas-backend/pkg/migrate"
	"github.com/rodrigoferraz/autovendas-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), nil, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	negotiationsSvc, err := negotiations.NewService(
		negotiations.NewRepository(dbClient.DB()),
		vehicles.NewCatalog(dbClient.DB()),
		dbClient,
		notificationsSvc,
		logg,
		cfg.Negotiation,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create negotiations service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	requestGuard := guard.New(cfg.Guard.Timeout)
	go requestGuard.Run(ctx, cfg.Guard.SweepInterval, func(removed int) {
		if removed > 0 {
			sweepCtx := logg.WithFields(ctx, map[string]any{"removed": removed})
			logg.Info(sweepCtx, "duplicate_guard.swept")
		}
	})

	promRegistry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Guard:         requestGuard,
			Negotiations:  negotiationsSvc,
			Notifications: notificationsSvc,
			Metrics:       httpMetrics,
			PromGatherer:  promRegistry,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}

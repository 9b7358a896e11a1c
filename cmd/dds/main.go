package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/wolkoffmikhail/dds-analytics/internal/api"
	"github.com/wolkoffmikhail/dds-analytics/internal/app"
	"github.com/wolkoffmikhail/dds-analytics/internal/dashboard"
	"github.com/wolkoffmikhail/dds-analytics/internal/dimension"
	"github.com/wolkoffmikhail/dds-analytics/internal/observability"
	"github.com/wolkoffmikhail/dds-analytics/internal/platform/cache"
	"github.com/wolkoffmikhail/dds-analytics/internal/platform/db"
	"github.com/wolkoffmikhail/dds-analytics/internal/registry"
	"github.com/wolkoffmikhail/dds-analytics/internal/store"
	"github.com/wolkoffmikhail/dds-analytics/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	var st store.Store = store.NewPostgres(pool)
	st = observability.InstrumentStore(st, metrics)
	resolver := dimension.NewResolver(st, logger)

	snapshotCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	if err := snapshotCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	dashboardService := dashboard.NewService(st, resolver, snapshotCache, logger)

	registryService := registry.NewService(st, resolver, logger)
	views := registry.Views(registryService, registry.All())

	apiHandler := api.NewHandler(logger, dashboardService, registryService, views, st)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		APIHandler: apiHandler,
		JobHandler: jobHandler,
		Metrics:    metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

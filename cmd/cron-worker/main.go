package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RayhanLauzzadani/pasma-apps/internal/app"
	"github.com/RayhanLauzzadani/pasma-apps/internal/cron"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/config"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/metrics"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/migrate"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/redis"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/tracing"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, "pasma-cron-worker", logg)
	if err != nil {
		logg.Error(ctx, "failed to init tracing", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logg.Error(context.Background(), "error flushing traces", err)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	services, err := app.NewServices(cfg.Escrow, dbClient, registry, logg)
	if err != nil {
		logg.Error(ctx, "failed to wire escrow services", err)
		os.Exit(1)
	}

	jobs, err := buildJobs(cfg, services, logg)
	if err != nil {
		logg.Error(ctx, "failed to build cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cron.DefaultLockPrefix, cfg.Scheduler.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(registry),
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	metricsServer := &http.Server{
		Addr:              cfg.Scheduler.MetricsListenAddress,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildJobs(cfg *config.Config, services *app.Services, logg *logger.Logger) ([]cron.Job, error) {
	unaccepted, err := cron.NewUnacceptedOrdersJob(cron.TimeoutJobParams{
		Logger:    logg,
		Orders:    services.Orders,
		Metrics:   services.Metrics,
		Interval:  cfg.Scheduler.UnacceptedInterval,
		BatchSize: cfg.Escrow.UnacceptedBatchSize,
	})
	if err != nil {
		return nil, err
	}
	unshipped, err := cron.NewUnshippedOrdersJob(cron.TimeoutJobParams{
		Logger:    logg,
		Orders:    services.Orders,
		Metrics:   services.Metrics,
		Interval:  cfg.Scheduler.UnshippedInterval,
		BatchSize: cfg.Escrow.UnshippedBatchSize,
	})
	if err != nil {
		return nil, err
	}
	grace, err := cron.NewGracePeriodJob(cron.GracePeriodJobParams{
		Logger:            logg,
		Orders:            services.Orders,
		Metrics:           services.Metrics,
		Interval:          cfg.Scheduler.GracePeriodInterval,
		ReminderBatch:     cfg.Escrow.ReminderBatchSize,
		AutoCompleteBatch: cfg.Escrow.AutoCompleteBatch,
	})
	if err != nil {
		return nil, err
	}
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:    logg,
		Purger:    services.Notifications,
		Retention: cfg.Escrow.NotificationRetentionDays,
		Interval:  cfg.Scheduler.RetentionInterval,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: services.Outbox,
		Retention:  cfg.Outbox.RetentionDays,
		Interval:   cfg.Scheduler.RetentionInterval,
	})
	if err != nil {
		return nil, err
	}
	return []cron.Job{unaccepted, unshipped, grace, cleanup, retention}, nil
}

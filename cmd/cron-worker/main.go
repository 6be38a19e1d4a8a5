package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veritasmarket/veritas-backend/internal/cron"
	"github.com/veritasmarket/veritas-backend/internal/disputes"
	"github.com/veritasmarket/veritas-backend/internal/moderators"
	"github.com/veritasmarket/veritas-backend/pkg/config"
	"github.com/veritasmarket/veritas-backend/pkg/db"
	"github.com/veritasmarket/veritas-backend/pkg/logger"
	"github.com/veritasmarket/veritas-backend/pkg/metrics"
	"github.com/veritasmarket/veritas-backend/pkg/migrate"
	"github.com/veritasmarket/veritas-backend/pkg/outbox"
	"github.com/veritasmarket/veritas-backend/pkg/redis"
)

const lockKeyFormat = "veritas:cron-worker:lock:%s"

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

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	disputeRepo := disputes.NewRepository(dbClient.DB())
	moderatorRepo := moderators.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())

	rebalanceJob, err := cron.NewWorkloadRebalanceJob(cron.WorkloadRebalanceJobParams{
		Logger:     logg,
		DB:         dbClient,
		Disputes:   disputeRepo,
		Moderators: moderatorRepo,
		MinLoad:    cfg.Cron.RebalanceThreshold,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create workload rebalance job", err)
		os.Exit(1)
	}

	rolloverJob, err := cron.NewEarningsRolloverJob(cron.EarningsRolloverJobParams{
		Logger:          logg,
		Moderators:      moderatorRepo,
		RolloverHourUTC: cfg.Cron.EarningsRolloverHourUTC,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create earnings rollover job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(rebalanceJob, rolloverJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.RebalanceInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

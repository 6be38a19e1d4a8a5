package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veritasmarket/veritas-backend/api/routes"
	"github.com/veritasmarket/veritas-backend/internal/disputes"
	"github.com/veritasmarket/veritas-backend/internal/moderators"
	"github.com/veritasmarket/veritas-backend/internal/notifications"
	"github.com/veritasmarket/veritas-backend/pkg/config"
	"github.com/veritasmarket/veritas-backend/pkg/db"
	"github.com/veritasmarket/veritas-backend/pkg/logger"
	"github.com/veritasmarket/veritas-backend/pkg/metrics"
	"github.com/veritasmarket/veritas-backend/pkg/migrate"
	"github.com/veritasmarket/veritas-backend/pkg/outbox"
	"github.com/veritasmarket/veritas-backend/pkg/redis"
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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	disputeMetrics := metrics.NewDisputeMetrics(prometheus.DefaultRegisterer)

	moderatorRepo := moderators.NewRepository(dbClient.DB())
	moderatorService, err := moderators.NewService(moderatorRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create moderators service", err)
		os.Exit(1)
	}

	disputeService, err := disputes.NewService(
		disputes.NewRepository(dbClient.DB()),
		moderatorRepo,
		dbClient,
		outboxService,
		disputeMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create disputes service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(
		notifications.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, disputeService, moderatorService, notificationService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

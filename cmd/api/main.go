package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/orro3790/drive-sub004/api/routes"
	"github.com/orro3790/drive-sub004/internal/bidding"
	"github.com/orro3790/drive-sub004/internal/health"
	"github.com/orro3790/drive-sub004/internal/lifecycle"
	"github.com/orro3790/drive-sub004/internal/notifications"
	"github.com/orro3790/drive-sub004/internal/preferences"
	"github.com/orro3790/drive-sub004/pkg/config"
	"github.com/orro3790/drive-sub004/pkg/db"
	"github.com/orro3790/drive-sub004/pkg/logger"
	"github.com/orro3790/drive-sub004/pkg/migrate"
	"github.com/orro3790/drive-sub004/pkg/outbox"
	"github.com/orro3790/drive-sub004/pkg/redis"
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

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	healthService, err := health.NewService(health.NewRepository(gormDB), dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create health service", err)
		os.Exit(1)
	}

	biddingService, err := bidding.NewService(bidding.NewRepository(gormDB), dbClient, outboxService, healthService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create bidding service", err)
		os.Exit(1)
	}

	lifecycleService, err := lifecycle.NewService(lifecycle.NewRepository(gormDB), dbClient, outboxService, healthService, biddingService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create lifecycle service", err)
		os.Exit(1)
	}

	preferencesService, err := preferences.NewService(preferences.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create preferences service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			lifecycleService,
			biddingService,
			preferencesService,
			healthService,
			notificationsService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

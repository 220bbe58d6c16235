package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/orro3790/drive-sub004/internal/bidding"
	"github.com/orro3790/drive-sub004/internal/cron"
	"github.com/orro3790/drive-sub004/internal/driverstats"
	"github.com/orro3790/drive-sub004/internal/health"
	"github.com/orro3790/drive-sub004/internal/lifecycle"
	"github.com/orro3790/drive-sub004/internal/noshow"
	"github.com/orro3790/drive-sub004/internal/notifications"
	"github.com/orro3790/drive-sub004/internal/scheduling"
	"github.com/orro3790/drive-sub004/pkg/config"
	"github.com/orro3790/drive-sub004/pkg/db"
	"github.com/orro3790/drive-sub004/pkg/logger"
	"github.com/orro3790/drive-sub004/pkg/metrics"
	"github.com/orro3790/drive-sub004/pkg/migrate"
	"github.com/orro3790/drive-sub004/pkg/outbox"
	"github.com/orro3790/drive-sub004/pkg/redis"
)

const lockKeyFormat = "ds:cron-worker:lock:%s"

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

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	orgs := cron.NewOrgRepository(gormDB)

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

	noShowService, err := noshow.NewService(noshow.NewRepository(gormDB), dbClient, outboxService, healthService, biddingService, cfg.Engine.NoShowBonus(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create no-show service", err)
		os.Exit(1)
	}

	schedulingService, err := scheduling.NewService(scheduling.NewRepository(gormDB), dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduling service", err)
		os.Exit(1)
	}

	statsService, err := driverstats.NewService(driverstats.NewRepository(gormDB), dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create driver stats service", err)
		os.Exit(1)
	}

	scheduleJob, err := cron.NewScheduleJob(cron.ScheduleJobParams{
		Logger:         logg,
		Orgs:           orgs,
		Scheduler:      schedulingService,
		LookaheadWeeks: cfg.Engine.ScheduleLookaheadWeeks,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create schedule job", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewDispatchSweepJob(cron.DispatchSweepJobParams{
		Logger:    logg,
		Orgs:      orgs,
		Lifecycle: lifecycleService,
		NoShows:   noShowService,
		Windows:   biddingService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch sweep job", err)
		os.Exit(1)
	}

	healthJob, err := cron.NewHealthJob(cron.HealthJobParams{
		Logger: logg,
		Orgs:   orgs,
		Health: healthService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create health job", err)
		os.Exit(1)
	}

	metricsJob, err := cron.NewMetricsJob(cron.MetricsJobParams{
		Logger: logg,
		Orgs:   orgs,
		Stats:  statsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create metrics job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(gormDB),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notifications.NewRepository(gormDB),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(scheduleJob, sweepJob, healthJob, metricsJob, retentionJob, cleanupJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Engine.SweepInterval,
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

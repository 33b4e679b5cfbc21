package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/mapas-backend/internal/cron"
	"github.com/angelmondragon/mapas-backend/internal/entities"
	"github.com/angelmondragon/mapas-backend/internal/notifications"
	"github.com/angelmondragon/mapas-backend/internal/users"
	"github.com/angelmondragon/mapas-backend/pkg/config"
	"github.com/angelmondragon/mapas-backend/pkg/db"
	"github.com/angelmondragon/mapas-backend/pkg/i18n"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
	"github.com/angelmondragon/mapas-backend/pkg/metrics"
	"github.com/angelmondragon/mapas-backend/pkg/migrate"
	"github.com/angelmondragon/mapas-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	jobs := flag.String("jobs", "", "comma separated job names for -once (default: all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "once": *once})

	hooks := db.NewHooks()
	entities.RegisterHooks(hooks, time.Now)

	dbClient, err := db.New(ctx, cfg.DB, hooks, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	notificationRepo := notifications.NewRepository(gormDB)

	locale := i18n.Default()
	if tag, ok := i18n.Parse(cfg.App.Locale); ok {
		locale = tag
	}
	generator, err := notifications.NewGenerator(notifications.GeneratorParams{
		Repo:     notificationRepo,
		Entities: entities.NewRepository(gormDB),
		Config:   cfg.Notifications,
		BaseURL:  cfg.App.BaseURL,
		Locale:   locale,
		Metrics:  metrics.NewNotificationMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
		Now:      time.Now,
	})
	requireResource(ctx, logg, "notification generator", err)

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationRepo,
		Retention:  cfg.Notifications.RetentionDays,
	})
	requireResource(ctx, logg, "notification cleanup job", err)

	entityJob, err := cron.NewEntityNotificationsJob(cron.EntityNotificationsJobParams{
		Logger:    logg,
		Users:     users.NewRepository(gormDB),
		Generator: generator,
		BatchSize: cfg.Cron.BatchSize,
	})
	requireResource(ctx, logg, "entity notifications job", err)

	registry, err := cron.NewRegistry(cleanupJob, entityJob)
	requireResource(ctx, logg, "cron registry", err)

	lock, err := cron.NewRedisLock(redisClient, "cron-worker", cfg.Cron.LockTTL)
	requireResource(ctx, logg, "cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
		// A cycle must finish before the lock it holds can expire.
		JobTimeout: cfg.Cron.LockTTL,
	})
	requireResource(ctx, logg, "cron service", err)

	if *once {
		if err := service.RunOnce(ctx, jobNames(*jobs)...); err != nil {
			logg.Error(ctx, "cron run failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func jobNames(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

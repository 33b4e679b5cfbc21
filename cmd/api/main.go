package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/mapas-backend/api/routes"
	"github.com/angelmondragon/mapas-backend/internal/auth"
	"github.com/angelmondragon/mapas-backend/internal/auth/providers"
	"github.com/angelmondragon/mapas-backend/internal/entities"
	"github.com/angelmondragon/mapas-backend/internal/notifications"
	"github.com/angelmondragon/mapas-backend/internal/roles"
	"github.com/angelmondragon/mapas-backend/internal/subsites"
	"github.com/angelmondragon/mapas-backend/internal/users"
	"github.com/angelmondragon/mapas-backend/pkg/auth/session"
	"github.com/angelmondragon/mapas-backend/pkg/config"
	"github.com/angelmondragon/mapas-backend/pkg/db"
	"github.com/angelmondragon/mapas-backend/pkg/i18n"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
	"github.com/angelmondragon/mapas-backend/pkg/metrics"
	"github.com/angelmondragon/mapas-backend/pkg/migrate"
	"github.com/angelmondragon/mapas-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "port": cfg.App.Port})

	hooks := db.NewHooks()
	users.RegisterHooks(hooks, time.Now)
	entities.RegisterHooks(hooks, time.Now)
	users.RegisterAuditHooks(hooks, logg)

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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	entityRepo := entities.NewRepository(gormDB)
	notificationRepo := notifications.NewRepository(gormDB)

	providerRegistry, err := providers.NewRegistry(cfg.Auth.Providers)
	requireResource(ctx, logg, "auth providers", err)

	usersService, err := users.NewService(users.ServiceParams{
		Users:     userRepo,
		Roles:     roles.NewRepository(gormDB),
		Entities:  entityRepo,
		Providers: providerRegistry,
		TxRunner:  dbClient,
	})
	requireResource(ctx, logg, "users service", err)

	notificationsService, err := notifications.NewService(notificationRepo)
	requireResource(ctx, logg, "notifications service", err)

	locale := i18n.Default()
	if tag, ok := i18n.Parse(cfg.App.Locale); ok {
		locale = tag
	}
	generator, err := notifications.NewGenerator(notifications.GeneratorParams{
		Repo:     notificationRepo,
		Entities: entityRepo,
		Config:   cfg.Notifications,
		BaseURL:  cfg.App.BaseURL,
		Locale:   locale,
		Metrics:  metrics.NewNotificationMetrics(registry),
		Logger:   logg,
		Now:      time.Now,
	})
	requireResource(ctx, logg, "notification generator", err)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:           usersService,
		UserRepo:        userRepo,
		Providers:       providerRegistry,
		Generator:       generator,
		SessionManager:  sessionManager,
		JWTConfig:       cfg.JWT,
		PasswordConfig:  cfg.Password,
		AuthConfig:      cfg.Auth,
		GenerateOnLogin: cfg.Notifications.GenerateOnLogin,
		OpenRegister:    cfg.FeatureFlags.OpenRegister,
		FakeAuth:        cfg.FeatureFlags.FakeAuth && cfg.App.IsDev(),
		BaseURL:         cfg.App.BaseURL,
		Logger:          logg,
		Now:             time.Now,
	})
	requireResource(ctx, logg, "auth service", err)

	resolver, err := subsites.NewResolver(subsites.NewRepository(gormDB), redisClient, cfg.Redis.SubsiteTTL)
	requireResource(ctx, logg, "subsite resolver", err)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Params{
			Config:        cfg,
			Logger:        logg,
			Gatherer:      registry,
			HTTPMetrics:   metrics.NewHTTPMetrics(registry),
			DB:            dbClient,
			Redis:         redisClient,
			RateLimiter:   redisClient,
			Sessions:      sessionManager,
			Subsites:      resolver,
			Actors:        userRepo,
			Auth:          authService,
			Users:         usersService,
			Notifications: notificationsService,
			Generator:     generator,
		}),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(ctx, "api server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logg.Info(ctx, "api server shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/ecoswap/ecoswap-api/api/routes"
	"github.com/ecoswap/ecoswap-api/internal/exchanges"
	"github.com/ecoswap/ecoswap-api/internal/notifications"
	"github.com/ecoswap/ecoswap-api/internal/products"
	"github.com/ecoswap/ecoswap-api/internal/users"
	"github.com/ecoswap/ecoswap-api/pkg/config"
	"github.com/ecoswap/ecoswap-api/pkg/db"
	"github.com/ecoswap/ecoswap-api/pkg/instance"
	"github.com/ecoswap/ecoswap-api/pkg/logger"
	"github.com/ecoswap/ecoswap-api/pkg/metrics"
	"github.com/ecoswap/ecoswap-api/pkg/migrate"
	"github.com/ecoswap/ecoswap-api/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	exchangeMetrics := metrics.NewExchangeMetrics(registry)

	summaryCache, err := users.NewSummaryCache(cfg.Cache.UserSummarySize)
	if err != nil {
		logg.Error(context.Background(), "failed to create user summary cache", err)
		os.Exit(1)
	}
	userService, err := users.NewService(users.NewRepository(dbClient.DB()), summaryCache)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	productRepo := products.NewRepository(dbClient.DB())
	productService, err := products.NewService(productRepo, userService)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	exchangeService, err := exchanges.NewService(exchanges.ServiceParams{
		Repo:     exchanges.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Products: products.NewStore(productRepo),
		Users:    userService,
		Notifier: notificationService,
		Policy:   exchanges.NewTransitionPolicy(cfg.Exchanges.LegacyTransitions()),
		Metrics:  exchangeMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create exchanges service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":               cfg.App.Env,
		"addr":              addr,
		"instance":          instance.GetID(),
		"transition_policy": cfg.Exchanges.TransitionPolicy,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			httpMetrics,
			exchangeService,
			productService,
			userService,
			notificationService,
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			exitCode = 1
		}
		cancel()
	}
	stop()

	if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
		logg.Error(ctx, "error closing resources", err)
		exitCode = 1
	}

	logg.Info(ctx, "api server stopped")
	os.Exit(exitCode)
}

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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/pricesheets-backend/api/routes"
	"github.com/angelmondragon/pricesheets-backend/internal/distribution"
	"github.com/angelmondragon/pricesheets-backend/internal/email"
	"github.com/angelmondragon/pricesheets-backend/internal/engagement"
	"github.com/angelmondragon/pricesheets-backend/internal/notifications"
	"github.com/angelmondragon/pricesheets-backend/internal/publicview"
	"github.com/angelmondragon/pricesheets-backend/internal/store"
	"github.com/angelmondragon/pricesheets-backend/internal/tokens"
	"github.com/angelmondragon/pricesheets-backend/internal/views"
	"github.com/angelmondragon/pricesheets-backend/pkg/config"
	"github.com/angelmondragon/pricesheets-backend/pkg/db"
	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
	"github.com/angelmondragon/pricesheets-backend/pkg/metrics"
	"github.com/angelmondragon/pricesheets-backend/pkg/migrate"
	"github.com/angelmondragon/pricesheets-backend/pkg/redis"
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

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sheetMetrics := metrics.NewSheetMetrics(registry)

	repo := store.NewRepository(dbClient.DB())
	codec, err := tokens.NewCodec(cfg.Token.Secret)
	if err != nil {
		return err
	}

	sender, err := newSender(cfg, logg)
	if err != nil {
		return err
	}

	distributionService, err := distribution.NewService(distribution.ServiceParams{
		Store:       repo,
		Sender:      sender,
		Codec:       codec,
		Logger:      logg,
		Metrics:     sheetMetrics,
		BaseURL:     cfg.Send.SheetBaseURL(),
		Delay:       cfg.Send.Delay,
		Concurrency: cfg.Send.Concurrency,
	})
	if err != nil {
		return err
	}

	recorder, err := views.NewRecorder(views.RecorderParams{
		Store:   repo,
		Logger:  logg,
		Metrics: sheetMetrics,
	})
	if err != nil {
		return err
	}

	sheetService, err := publicview.NewService(publicview.ServiceParams{
		Store:    repo,
		Codec:    codec,
		Recorder: recorder,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	engagementService, err := engagement.NewService(engagement.ServiceParams{Store: repo, Logger: logg})
	if err != nil {
		return err
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
			sheetService,
			distributionService,
			engagementService,
			notificationsService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Pending view writes finish before the store connections close.
	return multierr.Combine(
		server.Shutdown(shutdownCtx),
		recorder.Wait(shutdownCtx),
	)
}

func newSender(cfg *config.Config, logg *logger.Logger) (email.Sender, error) {
	if cfg.Sendgrid.APIKey == "" {
		if cfg.App.IsProd() {
			return nil, errors.New("sendgrid api key required in prod")
		}
		logg.Warn(context.Background(), "sendgrid not configured, logging emails instead")
		return email.NewLogSender(logg), nil
	}
	return email.NewSendgridSender(cfg.Sendgrid)
}

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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/salon-booking/cmd/mainconfig"
	"github.com/wolfman30/salon-booking/internal/api/router"
	"github.com/wolfman30/salon-booking/internal/app/bootstrap"
	"github.com/wolfman30/salon-booking/internal/availability"
	appconfig "github.com/wolfman30/salon-booking/internal/config"
	httpmiddleware "github.com/wolfman30/salon-booking/internal/http/middleware"
	"github.com/wolfman30/salon-booking/internal/notify"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/snapshot"
	"github.com/wolfman30/salon-booking/internal/widget"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting salon booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"horizon_days", cfg.HorizonDays,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	sesClient, err := setupSES(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	application, err := setupApp(ctx, cfg, logger, prometheus.DefaultRegisterer, prometheus.DefaultGatherer, redisClient, sesClient)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer application.limiter.Stop()

	if restored, err := application.store.Restore(ctx); err != nil {
		logger.Warn("could not restore cached schedule", "error", err)
	} else if restored {
		logger.Info("serving cached schedule until the first refresh")
	}
	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		application.refresher.Start(ctx)
	}()

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      application.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SheetsTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	<-refreshDone

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type app struct {
	handler   http.Handler
	store     *snapshot.Store
	refresher *snapshot.Refresher
	limiter   *httpmiddleware.RateLimiter
}

// setupApp wires everything behind the HTTP handler. redisClient and
// sesClient are optional.
func setupApp(
	ctx context.Context,
	cfg *appconfig.Config,
	logger *logging.Logger,
	registerer prometheus.Registerer,
	gatherer prometheus.Gatherer,
	redisClient *redis.Client,
	sesClient notify.SESAPI,
) (*app, error) {
	policy, err := bootstrap.BuildPolicy(cfg)
	if err != nil {
		return nil, err
	}
	sheetsClient, err := bootstrap.BuildSheetsClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	widgetMetrics := metrics.NewWidgetMetrics(registerer)

	var cache snapshot.Cache
	if rc := snapshot.NewRedisCache(redisClient, "", cfg.SnapshotCacheTTL); rc != nil {
		cache = rc
	}
	store, err := snapshot.NewStore(snapshot.StoreConfig{
		Fetcher:  sheetsClient,
		Cache:    cache,
		Metrics:  widgetMetrics,
		Logger:   logger,
		Location: cfg.Location(),
	})
	if err != nil {
		return nil, err
	}
	refresher, err := snapshot.NewRefresher(snapshot.RefresherConfig{
		Store:    store,
		Interval: cfg.SnapshotRefreshInterval,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	svc, err := widget.NewService(widget.ServiceConfig{
		Store:           store,
		Engine:          availability.New(policy),
		Submitter:       sheetsClient,
		Notifier:        bootstrap.BuildOperatorNotifier(cfg, sesClient, logger),
		Metrics:         widgetMetrics,
		Gatherer:        gatherer,
		Logger:          logger,
		HorizonDays:     cfg.HorizonDays,
		DefaultDuration: cfg.DefaultDurationMinutes,
		MaxAge:          cfg.SnapshotMaxAge,
		Location:        cfg.Location(),
	})
	if err != nil {
		return nil, err
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := router.New(&router.Config{
		Logger:             logger,
		WidgetHandler:      widget.NewHandler(svc, logger, httpmiddleware.RateLimit(limiter)),
		MetricsHandler:     promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	return &app{handler: handler, store: store, refresher: refresher, limiter: limiter}, nil
}

// setupSES returns an SES client only when SES is the configured provider.
func setupSES(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.SESAPI, error) {
	if cfg.NotifyEmailProvider != "ses" {
		return nil, nil
	}
	client, err := mainconfig.NewSESClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("operator e-mail via SES", "region", cfg.AWSRegion)
	return client, nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/patient-records-viewer/cmd/mainconfig"
	"github.com/wolfman30/patient-records-viewer/internal/app/bootstrap"
	appconfig "github.com/wolfman30/patient-records-viewer/internal/config"
	"github.com/wolfman30/patient-records-viewer/internal/observability/metrics"
	"github.com/wolfman30/patient-records-viewer/internal/profilecache"
	"github.com/wolfman30/patient-records-viewer/internal/records"
	"github.com/wolfman30/patient-records-viewer/internal/viewer"
	"github.com/wolfman30/patient-records-viewer/pkg/logging"
)

func main() {
	// .env is optional; deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting patient-records-viewer",
		"env", cfg.Env,
		"addr", cfg.Addr,
		"records_api", cfg.RecordsBaseURL,
		"cache_backend", cfg.CacheBackend,
	)

	var (
		viewerMetrics  *metrics.ViewerMetrics
		metricsHandler http.Handler
		gatherer       prometheus.Gatherer
	)
	if cfg.EnableMetrics {
		registry := prometheus.NewRegistry()
		viewerMetrics = metrics.NewViewerMetrics(registry)
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		gatherer = registry
	}

	gateway, err := records.NewClient(records.Config{
		BaseURL: cfg.RecordsBaseURL,
		Timeout: cfg.RecordsTimeout,
		Logger:  logger,
		Metrics: viewerMetrics,
	})
	if err != nil {
		logger.Error("failed to build records client", "error", err)
		os.Exit(1)
	}

	store, err := buildStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build profile cache store", "error", err)
		os.Exit(1)
	}

	cache := profilecache.New(store, gateway, logger, profilecache.WithMetrics(viewerMetrics))

	manager := viewer.NewManager(context.Background(), gateway, cache, logger, viewerMetrics)
	handler := viewer.NewHandler(manager, gateway, cache, cfg.CacheBackend, gatherer, logger)

	r := viewer.NewRouter(&viewer.RouterConfig{
		Handler:            handler,
		Logger:             logger,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildStore resolves AWS wiring only when the s3 backend asks for it.
func buildStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (profilecache.Store, error) {
	if cfg.CacheBackend != "s3" {
		return bootstrap.BuildProfileStore(ctx, cfg, nil, logger)
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return bootstrap.BuildProfileStore(ctx, cfg, mainconfig.NewS3Client(awsCfg, cfg), logger)
}

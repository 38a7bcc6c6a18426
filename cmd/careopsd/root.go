package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"careops/internal/config"
	"careops/internal/core"
	"careops/internal/httpapi"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "careopsd",
	Short: "careopsd - NDIS provider operations service",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.Version = Version
}

func run(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("configuration loaded",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("blob_driver", cfg.Blob.Driver),
	)

	store, closeStore, err := core.OpenPersistentStore(core.StorageConfig{
		Driver:      cfg.Storage.Driver,
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("store close error", zap.Error(err))
		}
	}()

	blobs, err := core.OpenBlobStore(ctx, blobConfig(cfg.Blob))
	if err != nil {
		return err
	}

	metrics, metricsRoutes, err := buildMetrics(cfg.Metrics)
	if err != nil {
		return err
	}

	svc := core.NewService(store, blobs,
		core.WithLogger(core.NewZapLogger(logger)),
		core.WithMetrics(metrics),
		core.WithAuditLogger(logger),
	)

	handler := httpapi.NewHandler(svc, logger)
	router := handler.Routes(metricsRoutes)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// buildMetrics constructs the configured metrics recorder and the extra
// routes that expose it. The "none" exporter returns a nil recorder; the
// service falls back to its no-op default.
func buildMetrics(cfg config.MetricsConfig) (core.MetricsRecorder, map[string]http.Handler, error) {
	switch cfg.Exporter {
	case "prometheus", "":
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := core.NewPrometheusMetricsRecorder(registry)
		if err != nil {
			return nil, nil, err
		}
		return metrics, map[string]http.Handler{
			"/metrics": promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}, nil
	case "expvar":
		return core.NewExpvarMetricsRecorder("careops"), map[string]http.Handler{
			"/debug/vars": expvar.Handler(),
		}, nil
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown metrics exporter %q", cfg.Exporter)
	}
}

func blobConfig(cfg config.BlobConfig) core.BlobConfig {
	out := core.BlobConfig{
		Driver: cfg.Driver,
		FSRoot: cfg.FSRoot,
	}
	out.S3.Region = cfg.S3.Region
	out.S3.Bucket = cfg.S3.Bucket
	out.S3.Endpoint = cfg.S3.Endpoint
	out.S3.AccessKeyID = cfg.S3.AccessKeyID
	out.S3.SecretAccessKey = cfg.S3.SecretAccessKey
	out.S3.SessionToken = cfg.S3.SessionToken
	out.S3.PathStyle = cfg.S3.PathStyle
	return out
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	var zc zap.Config
	switch cfg.Format {
	case "console":
		zc = zap.NewDevelopmentConfig()
	case "", "json":
		zc = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

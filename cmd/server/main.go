package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/civic-report-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/civic-report-service/internal/adapter/kafka"
	"github.com/couchcryptid/civic-report-service/internal/adapter/mapbox"
	redisadapter "github.com/couchcryptid/civic-report-service/internal/adapter/redis"
	"github.com/couchcryptid/civic-report-service/internal/config"
	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/couchcryptid/civic-report-service/internal/observability"
	"github.com/couchcryptid/civic-report-service/internal/pipeline"
	"github.com/couchcryptid/civic-report-service/internal/report"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("service exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()
	logger.Info("report store ready", "backend", cfg.StoreBackend)

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var (
		publisher report.Publisher
		reader    *kafkaadapter.Reader
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
	}

	svc := report.NewService(store.Store, geocoder, publisher, cfg.ClusterThreshold, logger, metrics)

	opts := httpadapter.Options{CORSOrigin: cfg.CORSOrigin}
	if cfg.RateLimit > 0 {
		client := redisadapter.NewClient(cfg.RedisAddress, cfg.RedisPassword)
		defer client.Close()
		opts.Limiter = redisadapter.NewLimiter(client, cfg.RateLimitPrefix, cfg.RateLimit)
		logger.Info("submission rate limit enabled", "per_day", cfg.RateLimit)
	}

	var ready httpadapter.ReadinessChecker = svc
	var p *pipeline.Pipeline
	if cfg.KafkaEnabled {
		p = pipeline.New(reader, pipeline.NewTransformer(), svc, logger, metrics, cfg.BatchSize)
		ready = readiness{svc, p}
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, ready, opts, logger, metrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if p != nil {
		g.Go(func() error {
			return p.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	err = g.Wait()

	if reader != nil {
		if cerr := reader.Close(); cerr != nil {
			logger.Error("kafka reader close error", "error", cerr)
		}
	}
	if writer != nil {
		if cerr := writer.Close(); cerr != nil {
			logger.Error("kafka writer close error", "error", cerr)
		}
	}

	logger.Info("shutdown complete")
	return err
}

// readiness requires every checker to pass.
type readiness []httpadapter.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

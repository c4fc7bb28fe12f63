package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/space-weather-etl/internal/adapter/kafka"
	"github.com/couchcryptid/space-weather-etl/internal/adapter/noaa"
	"github.com/couchcryptid/space-weather-etl/internal/adapter/postgres"
	"github.com/couchcryptid/space-weather-etl/internal/adapter/webhook"
	"github.com/couchcryptid/space-weather-etl/internal/config"
	"github.com/couchcryptid/space-weather-etl/internal/observability"
	"github.com/couchcryptid/space-weather-etl/internal/pipeline"
	"github.com/couchcryptid/space-weather-etl/internal/simulate"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	var history httpadapter.AlertHistory
	readiness := httpadapter.ReadinessGroup{}

	// Alert sinks. The log sink is always on; the rest are configured by env.
	sinks := []pipeline.AlertSink{pipeline.NewLogSink(logger)}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, webhook.NewNotifier(cfg.WebhookURL, cfg.WebhookTimeout, logger))
		logger.Info("webhook alerts enabled", "timeout", cfg.WebhookTimeout)
	}
	if cfg.DatabaseURL != "" {
		store, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure alert schema", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, store)
		history = store
		readiness = append(readiness, store)
		closers = append(closers, store.Close)
		logger.Info("postgres alert store enabled", "table", postgres.DefaultTable)
	}
	if cfg.KafkaEnabled {
		alertWriter := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		sinks = append(sinks, alertWriter)
		closers = append(closers, alertWriter.Close)
	}
	fanOut := pipeline.NewFanOut(metrics, logger, sinks...)

	// Feed monitor.
	source := newFeedSource(cfg, metrics, logger, &readiness, &closers)
	analyzer := pipeline.NewFeedAnalyzer(cfg.WindowHours, metrics, logger)
	monitor := pipeline.NewMonitor(source, analyzer, fanOut, cfg.PollSchedule, metrics, logger)
	readiness = append(readiness, monitor)

	// CME submissions pipeline.
	var p *pipeline.Pipeline
	if cfg.KafkaEnabled {
		reader := kafkaadapter.NewReader(kafkaadapter.ReaderConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaSourceTopic,
			GroupID:       cfg.KafkaGroupID,
			FlushInterval: cfg.BatchFlushInterval,
		}, logger)
		insightWriter := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaInsightTopic, logger)
		closers = append(closers, reader.Close, insightWriter.Close)

		p = pipeline.New(reader, pipeline.NewTransformer(logger), insightWriter, logger, metrics, cfg.BatchSize).
			WithAlerts(fanOut)
	} else {
		logger.Info("kafka disabled, cme submissions pipeline not started")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, readiness, monitor, logger)
	if history != nil {
		srv.WithAlertHistory(history)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := monitor.Run(ctx); err != nil {
			logger.Error("monitor error", "error", err)
			stop()
		}
	}()
	if p != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	waitOrTimeout(shutdownCtx, &wg, logger)
	for _, c := range closers {
		if err := c(); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newFeedSource builds NOAA client -> cache -> synthetic fallback, in that order.
func newFeedSource(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger, readiness *httpadapter.ReadinessGroup, closers *[]func() error) pipeline.FeedSource {
	client := noaa.NewClient(cfg.FeedURL, cfg.FeedTimeout, metrics, logger)

	var cache noaa.FeedCache
	switch cfg.FeedCacheBackend {
	case config.CacheBackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rc := noaa.NewRedisCache(rdb, cfg.FeedCacheTTL)
		*readiness = append(*readiness, rc)
		*closers = append(*closers, rdb.Close)
		cache = rc
	default:
		cache = noaa.NewMemoryCache(cfg.FeedCacheSize, cfg.FeedCacheTTL, nil)
	}
	logger.Info("feed cache configured", "backend", cfg.FeedCacheBackend, "ttl", cfg.FeedCacheTTL)

	var source pipeline.FeedSource = noaa.NewCachedSource(client, cache, client.Key(), metrics, logger)
	if cfg.SyntheticFallback {
		window := time.Duration(cfg.WindowHours * float64(time.Hour))
		source = noaa.NewFallbackSource(source, simulate.New(cfg.SimulatorSeed), window, clockwork.NewRealClock(), metrics, logger)
		logger.Info("synthetic feed fallback enabled", "seed", cfg.SimulatorSeed)
	}
	return source
}

func waitOrTimeout(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("loops did not stop before shutdown timeout")
	}
}

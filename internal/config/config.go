package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Feed cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Solar wind feed monitor.
	FeedURL           string
	FeedTimeout       time.Duration
	FeedCacheTTL      time.Duration
	FeedCacheSize     int
	FeedCacheBackend  string
	RedisAddr         string
	PollSchedule      string
	WindowHours       float64
	SyntheticFallback bool
	SimulatorSeed     uint64

	// CME submissions pipeline and Kafka sinks.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaInsightTopic  string
	KafkaAlertTopic    string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Optional alert sinks. Empty disables the sink.
	WebhookURL     string
	WebhookTimeout time.Duration
	DatabaseURL    string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FeedURL:          sharedcfg.EnvOrDefault("FEED_URL", "https://services.swpc.noaa.gov/text/rtsw/data/rtsw_wind_1m.txt"),
		FeedCacheBackend: sharedcfg.EnvOrDefault("FEED_CACHE_BACKEND", CacheBackendMemory),
		RedisAddr:        sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		PollSchedule:     sharedcfg.EnvOrDefault("POLL_SCHEDULE", "@every 1m"),

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "cme-submissions"),
		KafkaInsightTopic:  sharedcfg.EnvOrDefault("KAFKA_INSIGHT_TOPIC", "cme-insights"),
		KafkaAlertTopic:    sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "space-weather-alerts"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "space-weather-etl"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		WebhookURL:  os.Getenv("WEBHOOK_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}

	if cfg.FeedTimeout, err = parseDuration("FEED_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.FeedCacheTTL, err = parseDuration("FEED_CACHE_TTL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.WebhookTimeout, err = parseDuration("WEBHOOK_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.FeedCacheSize, err = parsePositiveInt("FEED_CACHE_SIZE", 16); err != nil {
		return nil, err
	}
	if cfg.WindowHours, err = parseWindowHours(); err != nil {
		return nil, err
	}
	if cfg.SyntheticFallback, err = parseBool("SYNTHETIC_FALLBACK", true); err != nil {
		return nil, err
	}
	if cfg.KafkaEnabled, err = parseBool("KAFKA_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.SimulatorSeed, err = parseSeed(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.FeedURL == "" {
		return errors.New("FEED_URL is required")
	}
	switch c.FeedCacheBackend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.RedisAddr == "" {
			return errors.New("FEED_CACHE_BACKEND is redis but REDIS_ADDR is not set")
		}
	default:
		return fmt.Errorf("invalid FEED_CACHE_BACKEND %q: want %s or %s", c.FeedCacheBackend, CacheBackendMemory, CacheBackendRedis)
	}
	if _, err := cron.ParseStandard(c.PollSchedule); err != nil {
		return fmt.Errorf("invalid POLL_SCHEDULE: %w", err)
	}

	if !c.KafkaEnabled {
		return nil
	}
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.KafkaSourceTopic == "" {
		return errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if c.KafkaInsightTopic == "" {
		return errors.New("KAFKA_INSIGHT_TOPIC is required")
	}
	if c.KafkaAlertTopic == "" {
		return errors.New("KAFKA_ALERT_TOPIC is required")
	}
	return nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, s)
	}
	return b, nil
}

func parseWindowHours() (float64, error) {
	s := os.Getenv("WINDOW_HOURS")
	if s == "" {
		return 24, nil
	}
	h, err := strconv.ParseFloat(s, 64)
	if err != nil || h <= 0 {
		return 0, fmt.Errorf("invalid WINDOW_HOURS: %q", s)
	}
	return h, nil
}

func parseSeed() (uint64, error) {
	s := os.Getenv("SIMULATOR_SEED")
	if s == "" {
		return 42, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid SIMULATOR_SEED: %q", s)
	}
	return n, nil
}

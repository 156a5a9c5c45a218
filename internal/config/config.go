package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
	BackendRemote   = "remote"
)

const (
	defaultClusterThreshold = 0.0005
	defaultSQLitePath       = "civic_issues.db"
	maxBatchSize            = 1000
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration
	CORSOrigin       string
	ClusterThreshold float64

	// Report store selection.
	StoreBackend       string
	StorePath          string
	DatabaseURL        string
	MongoURI           string
	MongoDatabase      string
	RedisAddress       string
	RedisPassword      string
	RedisReportsKey    string
	RemoteStoreURL     string
	RemoteStoreTimeout time.Duration

	// Per-client submission limit per day; 0 disables it.
	RateLimit       int
	RateLimitPrefix string

	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaIntakeTopic  string
	KafkaReportsTopic string
	KafkaGroupID      string

	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	remoteTimeout, err := parsePositiveDuration("REMOTE_STORE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	flushInterval, err := parsePositiveDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseBatchSize()
	if err != nil {
		return nil, err
	}

	threshold, err := parseClusterThreshold()
	if err != nil {
		return nil, err
	}

	rateLimit, err := parseRateLimit()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		CORSOrigin:       envOrDefault("CORS_ORIGIN", "*"),
		ClusterThreshold: threshold,

		StoreBackend:       strings.ToLower(envOrDefault("STORE_BACKEND", BackendFile)),
		StorePath:          envOrDefault("STORE_PATH", "civic_issues.json"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MongoURI:           os.Getenv("MONGODB_URI"),
		MongoDatabase:      envOrDefault("MONGODB_DATABASE", "civic"),
		RedisAddress:       os.Getenv("REDIS_ADDRESS"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisReportsKey:    envOrDefault("REDIS_REPORTS_KEY", "civic:reports"),
		RemoteStoreURL:     os.Getenv("REMOTE_STORE_URL"),
		RemoteStoreTimeout: remoteTimeout,

		RateLimit:       rateLimit,
		RateLimitPrefix: envOrDefault("RATE_LIMIT_PREFIX", "civic:ratelimit"),

		KafkaEnabled:      os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:      parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaIntakeTopic:  envOrDefault("KAFKA_INTAKE_TOPIC", "civic-report-submissions"),
		KafkaReportsTopic: envOrDefault("KAFKA_REPORTS_TOPIC", "civic-reports"),
		KafkaGroupID:      envOrDefault("KAFKA_GROUP_ID", "civic-report-service"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if err := cfg.validateStore(); err != nil {
		return nil, err
	}
	if cfg.RateLimit > 0 && cfg.RedisAddress == "" {
		return nil, errors.New("RATE_LIMIT is set but REDIS_ADDRESS is not")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaIntakeTopic == "" {
			return nil, errors.New("KAFKA_INTAKE_TOPIC is required")
		}
		if cfg.KafkaReportsTopic == "" {
			return nil, errors.New("KAFKA_REPORTS_TOPIC is required")
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func (c *Config) validateStore() error {
	switch c.StoreBackend {
	case BackendFile:
		if c.StorePath == "" {
			return errors.New("STORE_PATH is required for the file backend")
		}
	case BackendMemory:
	case BackendSQLite:
		if c.DatabaseURL == "" {
			c.DatabaseURL = defaultSQLitePath
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required for the mongo backend")
		}
	case BackendRedis:
		if c.RedisAddress == "" {
			return errors.New("REDIS_ADDRESS is required for the redis backend")
		}
	case BackendRemote:
		if c.RemoteStoreURL == "" {
			return errors.New("REMOTE_STORE_URL is required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseBrokers splits a comma-separated broker list, dropping blanks.
func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBatchSize() (int, error) {
	n, err := strconv.Atoi(envOrDefault("BATCH_SIZE", "50"))
	if err != nil || n < 1 || n > maxBatchSize {
		return 0, fmt.Errorf("invalid BATCH_SIZE: must be between 1 and %d", maxBatchSize)
	}
	return n, nil
}

func parseClusterThreshold() (float64, error) {
	s := os.Getenv("CLUSTER_THRESHOLD")
	if s == "" {
		return defaultClusterThreshold, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, errors.New("invalid CLUSTER_THRESHOLD: must be a positive number")
	}
	return v, nil
}

func parseRateLimit() (int, error) {
	n, err := strconv.Atoi(envOrDefault("RATE_LIMIT", "0"))
	if err != nil || n < 0 {
		return 0, errors.New("invalid RATE_LIMIT: must be a non-negative integer")
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

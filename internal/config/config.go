// Package config defines all configuration structures for MolGraph.  No I/O
// or parsing logic lives in this file, only plain data types and validation.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// DatasetConfig locates the raw molecule archive.
type DatasetConfig struct {
	// Path is a local .npz file or an object reference "s3://bucket/key".
	Path string `mapstructure:"path"`
}

// GraphConfig holds the batch index builder tunables.
type GraphConfig struct {
	// Cutoff is the neighbour radius, fixed for the life of the store.
	Cutoff float64 `mapstructure:"cutoff"`
	// Workers bounds concurrent per-molecule graph construction.
	Workers int `mapstructure:"workers"`
	// FillValue replaces absent target properties.  nil means NaN.
	FillValue *float64 `mapstructure:"fill_value"`
	// MaxBatchSize rejects selections longer than this; 0 disables the check.
	MaxBatchSize int `mapstructure:"max_batch_size"`
}

// Fill returns the configured fill value, NaN when unset.
func (g GraphConfig) Fill() float64 {
	if g.FillValue == nil {
		return math.NaN()
	}
	return *g.FillValue
}

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	Mode            string          `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds API requests per client IP.  A zero rate disables
// limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CacheConfig controls caching of built batches.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Prefix      string        `mapstructure:"prefix"`
	TTL         time.Duration `mapstructure:"ttl"`
	// LoadTimeout bounds a batch build shared by concurrent cache misses.
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
	Redis       RedisConfig   `mapstructure:"redis"`
}

// MinIOConfig holds object storage parameters.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	ExportBucket    string `mapstructure:"export_bucket"`
}

// StorageConfig groups object storage backends.
type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

// KafkaConfig holds the batch worker's broker parameters.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	GroupID      string        `mapstructure:"group_id"`
	RequestTopic string        `mapstructure:"request_topic"`
	ResultTopic  string        `mapstructure:"result_topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// MessagingConfig groups message brokers.
type MessagingConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Dataset   DatasetConfig     `mapstructure:"dataset"`
	Graph     GraphConfig       `mapstructure:"graph"`
	Server    ServerConfig      `mapstructure:"server"`
	Cache     CacheConfig       `mapstructure:"cache"`
	Storage   StorageConfig     `mapstructure:"storage"`
	Messaging MessagingConfig   `mapstructure:"messaging"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
	Log       logging.LogConfig `mapstructure:"log"`
}

// UsesObjectStorage reports whether the dataset path is an object reference.
func (c *Config) UsesObjectStorage() bool {
	return strings.HasPrefix(c.Dataset.Path, "s3://")
}

// Validate checks cross-field invariants.  It must be called after
// ApplyDefaults.
func (c *Config) Validate() error {
	if c.Dataset.Path == "" {
		return fmt.Errorf("config: dataset.path is required")
	}

	// Graph
	if math.IsNaN(c.Graph.Cutoff) || math.IsInf(c.Graph.Cutoff, 0) || c.Graph.Cutoff <= 0 {
		return fmt.Errorf("config: graph.cutoff must be a positive finite number, got %v", c.Graph.Cutoff)
	}
	if c.Graph.Workers < 1 {
		return fmt.Errorf("config: graph.workers must be ≥ 1, got %d", c.Graph.Workers)
	}
	if c.Graph.MaxBatchSize < 0 {
		return fmt.Errorf("config: graph.max_batch_size must be ≥ 0, got %d", c.Graph.MaxBatchSize)
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.Server.RateLimit.RequestsPerSecond < 0 || c.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("config: server.rate_limit values must be ≥ 0")
	}

	// Cache
	if c.Cache.Enabled {
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("config: cache.redis.addr is required when the cache is enabled")
		}
		if c.Cache.Redis.DB < 0 {
			return fmt.Errorf("config: cache.redis.db must be ≥ 0, got %d", c.Cache.Redis.DB)
		}
		if c.Cache.TTL < 0 {
			return fmt.Errorf("config: cache.ttl must be ≥ 0, got %s", c.Cache.TTL)
		}
	}

	// Storage
	if c.UsesObjectStorage() && c.Storage.MinIO.Endpoint == "" {
		return fmt.Errorf("config: storage.minio.endpoint is required for dataset path %q", c.Dataset.Path)
	}

	// Messaging
	if c.Messaging.Kafka.RequestTopic == c.Messaging.Kafka.ResultTopic {
		return fmt.Errorf("config: messaging.kafka.request_topic and result_topic must differ")
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("config: metrics.namespace is required when metrics are enabled")
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

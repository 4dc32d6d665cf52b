package config

import (
	"math"
	"runtime"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultCutoff = 5.0

	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerShutdownTimeout = 30 * time.Second

	DefaultCachePrefix      = "molgraph:"
	DefaultCacheTTL         = 30 * time.Minute
	DefaultCacheLoadTimeout = 2 * time.Minute
	DefaultRedisAddr        = "localhost:6379"

	DefaultMinIORegion       = "us-east-1"
	DefaultMinIOExportBucket = "molgraph-batches"

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaGroupID      = "molgraph-worker"
	DefaultKafkaRequestTopic = "molgraph.batch.request"
	DefaultKafkaResultTopic  = "molgraph.batch.result"
	DefaultKafkaBatchTimeout = 2 * time.Minute

	DefaultMetricsNamespace = "molgraph"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultWorkers is the per-batch graph construction concurrency.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// already set are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Graph ─────────────────────────────────────────────────────────────────
	if cfg.Graph.Cutoff == 0 {
		cfg.Graph.Cutoff = DefaultCutoff
	}
	if cfg.Graph.Workers == 0 {
		cfg.Graph.Workers = DefaultWorkers()
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if rl := &cfg.Server.RateLimit; rl.RequestsPerSecond > 0 && rl.Burst == 0 {
		rl.Burst = int(math.Ceil(rl.RequestsPerSecond))
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = DefaultCachePrefix
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.LoadTimeout == 0 {
		cfg.Cache.LoadTimeout = DefaultCacheLoadTimeout
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = DefaultRedisAddr
	}

	// ── Storage ───────────────────────────────────────────────────────────────
	if cfg.Storage.MinIO.Region == "" {
		cfg.Storage.MinIO.Region = DefaultMinIORegion
	}
	if cfg.Storage.MinIO.ExportBucket == "" {
		cfg.Storage.MinIO.ExportBucket = DefaultMinIOExportBucket
	}

	// ── Messaging ─────────────────────────────────────────────────────────────
	if len(cfg.Messaging.Kafka.Brokers) == 0 {
		cfg.Messaging.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Messaging.Kafka.GroupID == "" {
		cfg.Messaging.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Messaging.Kafka.RequestTopic == "" {
		cfg.Messaging.Kafka.RequestTopic = DefaultKafkaRequestTopic
	}
	if cfg.Messaging.Kafka.ResultTopic == "" {
		cfg.Messaging.Kafka.ResultTopic = DefaultKafkaResultTopic
	}
	if cfg.Messaging.Kafka.BatchTimeout == 0 {
		cfg.Messaging.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// NewDefaultConfig returns a Config with every default applied and the given
// dataset path.
func NewDefaultConfig(datasetPath string) *Config {
	cfg := &Config{Dataset: DatasetConfig{Path: datasetPath}}
	ApplyDefaults(cfg)
	return cfg
}

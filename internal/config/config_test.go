package config

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return NewDefaultConfig("data/qm9.npz")
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"missing dataset path", func(c *Config) { c.Dataset.Path = "" }, "dataset.path"},
		{"negative cutoff", func(c *Config) { c.Graph.Cutoff = -1 }, "graph.cutoff"},
		{"NaN cutoff", func(c *Config) { c.Graph.Cutoff = math.NaN() }, "graph.cutoff"},
		{"infinite cutoff", func(c *Config) { c.Graph.Cutoff = math.Inf(1) }, "graph.cutoff"},
		{"no workers", func(c *Config) { c.Graph.Workers = -2 }, "graph.workers"},
		{"negative max batch", func(c *Config) { c.Graph.MaxBatchSize = -1 }, "graph.max_batch_size"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit.RequestsPerSecond = -1 }, "server.rate_limit"},
		{"cache without addr", func(c *Config) { c.Cache.Enabled = true; c.Cache.Redis.Addr = "" }, "cache.redis.addr"},
		{"cache negative db", func(c *Config) { c.Cache.Enabled = true; c.Cache.Redis.DB = -1 }, "cache.redis.db"},
		{"s3 without endpoint", func(c *Config) { c.Dataset.Path = "s3://bucket/qm9.npz" }, "storage.minio.endpoint"},
		{"same topics", func(c *Config) { c.Messaging.Kafka.ResultTopic = c.Messaging.Kafka.RequestTopic }, "must differ"},
		{"metrics without namespace", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Namespace = "" }, "metrics.namespace"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_UsesObjectStorage(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.UsesObjectStorage())

	cfg.Dataset.Path = "s3://datasets/qm9_eV.npz"
	cfg.Storage.MinIO.Endpoint = "localhost:9000"
	assert.True(t, cfg.UsesObjectStorage())
	assert.NoError(t, cfg.Validate())
}

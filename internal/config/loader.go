// Package config provides configuration loading, defaults, and validation for
// MolGraph.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "MOLGRAPH"

// envKeys lists the keys that may be supplied through the environment only.
// viper.Unmarshal ignores AutomaticEnv for keys it has never seen, so each
// one is bound explicitly.
var envKeys = []string{
	"dataset.path",
	"graph.cutoff", "graph.workers", "graph.fill_value", "graph.max_batch_size",
	"server.port", "server.mode", "server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
	"server.rate_limit.requests_per_second", "server.rate_limit.burst",
	"cache.enabled", "cache.prefix", "cache.ttl", "cache.load_timeout",
	"cache.redis.addr", "cache.redis.password", "cache.redis.db", "cache.redis.pool_size",
	"storage.minio.endpoint", "storage.minio.access_key_id", "storage.minio.secret_access_key",
	"storage.minio.use_ssl", "storage.minio.region", "storage.minio.export_bucket",
	"messaging.kafka.brokers", "messaging.kafka.group_id",
	"messaging.kafka.request_topic", "messaging.kafka.result_topic", "messaging.kafka.batch_timeout",
	"metrics.enabled", "metrics.namespace", "metrics.path",
	"log.level", "log.format",
}

// newViper builds a Viper instance with YAML file type, the MOLGRAPH_ env
// prefix and a "." → "_" key replacer, so "graph.cutoff" resolves to
// MOLGRAPH_GRAPH_CUTOFF.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges MOLGRAPH_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	return LoadWithOverrides(configPath, nil)
}

// LoadWithOverrides is Load with explicit values that take precedence over
// both the file and the environment, keyed like "dataset.path".  An empty
// configPath reads the environment only.
func LoadWithOverrides(configPath string, overrides map[string]interface{}) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
		}
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from MOLGRAPH_* environment variables.
//
//	MOLGRAPH_<SECTION>_<FIELD>   e.g.  MOLGRAPH_DATASET_PATH, MOLGRAPH_GRAPH_CUTOFF
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the re-parsed Config
// after every write.  Changes that fail to parse or validate are passed to
// onError (when non-nil) and onChange is skipped.  Watch is non-blocking.
//
// Only settings that are safe to change at runtime (log level) should be
// applied by callers; the cutoff in particular is fixed for the life of the
// store.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load that panics on error.  For main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

// Package config loads matchcore's runtime configuration from defaults,
// an optional matchcore.yaml file, and MATCHCORE_-prefixed environment
// variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"matchcore/wal"
)

// Config is the top-level runtime configuration for cmd/server.
type Config struct {
	DataDir          string        `mapstructure:"data_dir"`
	ListenAddr       string        `mapstructure:"listen_addr"`
	WALFlushPolicy   string        `mapstructure:"wal_flush_policy"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	TradeRingSize    int           `mapstructure:"trade_ring_size"`
	LogLevel         string        `mapstructure:"log_level"`
}

// Load reads configuration from defaults, then path (if it exists), then
// MATCHCORE_-prefixed environment variables. path may be empty, in which
// case the default search looks for matchcore.yaml in the working
// directory; a missing config file is not an error, since every field
// has a usable default.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MATCHCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", "./data")
	v.SetDefault("listen_addr", "0.0.0.0:50051")
	v.SetDefault("wal_flush_policy", "per_record")
	v.SetDefault("snapshot_interval", 5*time.Minute)
	v.SetDefault("trade_ring_size", 4096)
	v.SetDefault("log_level", "info")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("matchcore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if _, err := wal.ParseFlushPolicy(cfg.WALFlushPolicy); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("config: listen_addr must not be empty")
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("config: data_dir must not be empty")
	}

	return &cfg, nil
}

// FlushPolicy parses WALFlushPolicy into a wal.FlushPolicy. Load already
// validates the string, so this never fails for a Config it returned.
func (c *Config) FlushPolicy() wal.FlushPolicy {
	p, _ := wal.ParseFlushPolicy(c.WALFlushPolicy)
	return p
}

// Package config provides configuration types and defaults for guidd.
package config

import (
	"fmt"
	"time"

	"guidd/internal/log"
	"guidd/internal/tracing"
)

// ServerConfig holds the HTTP listener options.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StoreConfig holds the durable store options.
type StoreConfig struct {
	// Path is the SQLite database file. ":memory:" is accepted.
	Path string `mapstructure:"path"`
}

// CacheConfig selects and tunes the record cache.
type CacheConfig struct {
	// Backend is "memory", "redis", or "none".
	Backend string `mapstructure:"backend"`
	// MaxTTL caps per-entry cache TTLs; entries never outlive the
	// record's own expiration regardless.
	MaxTTL time.Duration `mapstructure:"max_ttl"`
	// RedisAddr and RedisDB configure the redis backend.
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
}

// RecordConfig holds record lifecycle options.
type RecordConfig struct {
	// DefaultLifetime applies when a create request has no expire.
	DefaultLifetime time.Duration `mapstructure:"default_lifetime"`
}

// Config holds all configuration options for guidd.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Store   StoreConfig    `mapstructure:"store"`
	Cache   CacheConfig    `mapstructure:"cache"`
	Record  RecordConfig   `mapstructure:"record"`
	Log     log.Config     `mapstructure:"log"`
	Tracing tracing.Config `mapstructure:"tracing"`
}

// Defaults returns the configuration used when no file or flags are
// present.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8888",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Path: "data/guidd.db",
		},
		Cache: CacheConfig{
			Backend:   "memory",
			MaxTTL:    time.Hour,
			RedisAddr: "localhost:6379",
			RedisDB:   0,
		},
		Record: RecordConfig{
			DefaultLifetime: 30 * 24 * time.Hour,
		},
		Log: log.Config{
			Level:  "info",
			Format: "console",
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Validate rejects option combinations the service cannot run with.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path must not be empty")
	}
	if c.Cache.MaxTTL <= 0 {
		return fmt.Errorf("cache max_ttl must be positive")
	}
	if c.Record.DefaultLifetime <= 0 {
		return fmt.Errorf("record default_lifetime must be positive")
	}
	return nil
}

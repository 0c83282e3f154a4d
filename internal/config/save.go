package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of the config file. Durations are
// rendered in Go notation (e.g. "1h", "30s"), which viper parses back.
type fileConfig struct {
	Server struct {
		Addr         string `yaml:"addr"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Cache struct {
		Backend   string `yaml:"backend"`
		MaxTTL    string `yaml:"max_ttl"`
		RedisAddr string `yaml:"redis_addr"`
		RedisDB   int    `yaml:"redis_db"`
	} `yaml:"cache"`
	Record struct {
		DefaultLifetime string `yaml:"default_lifetime"`
	} `yaml:"record"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
	Tracing struct {
		Enabled      bool    `yaml:"enabled"`
		Exporter     string  `yaml:"exporter"`
		FilePath     string  `yaml:"file_path"`
		OTLPEndpoint string  `yaml:"otlp_endpoint"`
		SampleRate   float64 `yaml:"sample_rate"`
		ServiceName  string  `yaml:"service_name"`
	} `yaml:"tracing"`
}

// WriteDefaultConfig writes the default configuration to path, creating
// parent directories as needed. Existing files are left alone.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	d := Defaults()
	var fc fileConfig
	fc.Server.Addr = d.Server.Addr
	fc.Server.ReadTimeout = d.Server.ReadTimeout.String()
	fc.Server.WriteTimeout = d.Server.WriteTimeout.String()
	fc.Store.Path = d.Store.Path
	fc.Cache.Backend = d.Cache.Backend
	fc.Cache.MaxTTL = d.Cache.MaxTTL.String()
	fc.Cache.RedisAddr = d.Cache.RedisAddr
	fc.Cache.RedisDB = d.Cache.RedisDB
	fc.Record.DefaultLifetime = d.Record.DefaultLifetime.String()
	fc.Log.Level = d.Log.Level
	fc.Log.Format = d.Log.Format
	fc.Log.File = d.Log.File
	fc.Tracing.Enabled = d.Tracing.Enabled
	fc.Tracing.Exporter = d.Tracing.Exporter
	fc.Tracing.FilePath = d.Tracing.FilePath
	fc.Tracing.OTLPEndpoint = d.Tracing.OTLPEndpoint
	fc.Tracing.SampleRate = d.Tracing.SampleRate
	fc.Tracing.ServiceName = d.Tracing.ServiceName

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

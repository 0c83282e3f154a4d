// Package cmd wires configuration, logging, storage, and the HTTP
// server into the guidd command-line interface.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"guidd/internal/config"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "guidd",
	Short:   "A GUID record registry service",
	Long: `guidd issues and manages opaque identity records. Each record binds a
32-character hexadecimal identifier to a user label and an expiration
timestamp, persisted in SQLite and mirrored into a time-bounded cache.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersion sets the version string shown by --version.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./guidd.yaml, then ~/.config/guidd/config.yaml)")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.read_timeout", defaults.Server.ReadTimeout)
	viper.SetDefault("server.write_timeout", defaults.Server.WriteTimeout)
	viper.SetDefault("store.path", defaults.Store.Path)
	viper.SetDefault("cache.backend", defaults.Cache.Backend)
	viper.SetDefault("cache.max_ttl", defaults.Cache.MaxTTL)
	viper.SetDefault("cache.redis_addr", defaults.Cache.RedisAddr)
	viper.SetDefault("cache.redis_db", defaults.Cache.RedisDB)
	viper.SetDefault("record.default_lifetime", defaults.Record.DefaultLifetime)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.format", defaults.Log.Format)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. ./guidd.yaml (current directory)
		// 2. ~/.config/guidd/config.yaml (user config)
		if _, err := os.Stat("guidd.yaml"); err == nil {
			viper.SetConfigFile("guidd.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "guidd"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			// No config file found anywhere - create defaults at ./guidd.yaml
			defaultPath := "guidd.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		} else {
			fmt.Fprintln(os.Stderr, "Error reading config:", err)
			os.Exit(1)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "Error parsing config:", err)
		os.Exit(1)
	}
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"guidd/internal/api"
	"guidd/internal/cache"
	"guidd/internal/cache/memcache"
	"guidd/internal/cache/rediscache"
	"guidd/internal/config"
	"guidd/internal/guid/domain"
	"guidd/internal/guid/registry"
	"guidd/internal/infrastructure/sqlite"
	"guidd/internal/log"
	"guidd/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the GUID registry HTTP server",
	Long: `Run the registry as a long-lived HTTP server. Records are persisted in
SQLite; reads go through the configured cache backend first.

Example:
  guidd serve                     # listen on the configured address
  guidd serve --addr :8080        # override the listen address`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "address to listen on (overrides config)")
	serveCmd.Flags().String("store-path", "", "SQLite database path (overrides config)")
	serveCmd.Flags().String("cache-backend", "", "cache backend: memory, redis, or none (overrides config)")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("store.path", serveCmd.Flags().Lookup("store-path"))
	_ = viper.BindPFlag("cache.backend", serveCmd.Flags().Lookup("cache-backend"))
}

func runServe(_ *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := log.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	tp, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	db, err := sqlite.NewDB(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = db.Close() }()

	store, err := buildCache(cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = store.Close() }()

	reg := registry.New(registry.Config{
		Repo:        db.RecordRepository(),
		Cache:       store,
		MaxCacheTTL: cfg.Cache.MaxTTL,
		Lifetime:    cfg.Record.DefaultLifetime,
		Logger:      logger.Named("registry"),
		Tracer:      tp.Tracer(),
	})

	server, err := api.NewServer(api.ServerConfig{
		Addr:         cfg.Server.Addr,
		Registry:     reg,
		Metrics:      api.NewMetrics(),
		Logger:       logger.Named("api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	logger.Info("serving", zap.Int("port", server.Port()), zap.String("store", cfg.Store.Path))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			return fmt.Errorf("stopping server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}

// buildCache constructs the configured cache backend. The "none"
// backend is a real no-op store so the registry never needs nil checks.
func buildCache(cfg config.CacheConfig, logger *zap.Logger) (cache.Store, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		return rediscache.New(rediscache.Opts{
			Client:       client,
			ClientCloser: client,
			Logger:       logger.Named("cache"),
		})
	case "none":
		return nopCache{}, nil
	default:
		return memcache.New(0), nil
	}
}

// nopCache satisfies cache.Store while caching nothing: every Get is a
// miss, so all reads fall through to the durable store.
type nopCache struct{}

func (nopCache) Get(context.Context, string) (*domain.Record, bool) { return nil, false }

func (nopCache) Set(context.Context, string, *domain.Record, time.Duration) {}

func (nopCache) Delete(context.Context, string) {}

func (nopCache) Close() error { return nil }

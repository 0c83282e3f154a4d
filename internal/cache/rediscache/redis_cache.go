// Package rediscache implements the record cache on Redis. Entries are
// JSON-encoded records stored with a per-entry TTL, so Redis evicts
// them without any reaping logic on our side.
//
// Every operation runs under a short client timeout. When the client
// errors, the backend marks itself disabled and probes Redis in the
// background until a ping succeeds; while disabled, Get reports misses
// and Set/Delete are no-ops. Requests never wait on a dead Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"guidd/internal/guid/domain"
)

var nopLogger = zap.NewNop()

// Opts configures a Cache.
type Opts struct {
	// Client cannot be nil.
	Client redis.Cmdable

	// ClientCloser closes Client when Cache.Close is called. Optional.
	ClientCloser interface{ Close() error }

	// ClientTimeout bounds each read and write. Default 1s.
	ClientTimeout time.Duration

	// KeyPrefix namespaces cache keys. Default "guid:".
	KeyPrefix string

	// Logger is optional; nil disables logging.
	Logger *zap.Logger
}

func (o *Opts) init() error {
	if o.Client == nil {
		return errors.New("nil redis client")
	}
	if o.ClientTimeout <= 0 {
		o.ClientTimeout = time.Second
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = "guid:"
	}
	if o.Logger == nil {
		o.Logger = nopLogger
	}
	return nil
}

// Cache is a Redis-backed record cache.
type Cache struct {
	opts           Opts
	clientDisabled uint32
}

// New creates a Redis-backed cache.
func New(opts Opts) (*Cache, error) {
	if err := opts.init(); err != nil {
		return nil, err
	}
	return &Cache{opts: opts}, nil
}

func (c *Cache) disabled() bool {
	return atomic.LoadUint32(&c.clientDisabled) != 0
}

// disableClient takes the client out of rotation and starts a ping loop
// that re-enables it once Redis answers again.
func (c *Cache) disableClient() {
	if !atomic.CompareAndSwapUint32(&c.clientDisabled, 0, 1) {
		return
	}
	c.opts.Logger.Warn("redis temporarily disabled")
	go func() {
		const maxBackoff = time.Second * 30
		backoff := time.Millisecond * 100
		for {
			time.Sleep(backoff)
			ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*500)
			err := c.opts.Client.Ping(ctx).Err()
			cancel()
			if err != nil {
				if backoff >= maxBackoff {
					backoff = maxBackoff
				} else {
					backoff += time.Duration(rand.Intn(1000))*time.Millisecond + time.Second
				}
				c.opts.Logger.Warn("redis ping failed", zap.Error(err), zap.Duration("next_ping", backoff))
				continue
			}
			c.opts.Logger.Info("redis re-enabled")
			atomic.StoreUint32(&c.clientDisabled, 0)
			return
		}
	}()
}

// Get returns the cached record under key. Misses, decode failures, and
// client errors all report a miss.
func (c *Cache) Get(ctx context.Context, key string) (*domain.Record, bool) {
	if c.disabled() {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.ClientTimeout)
	defer cancel()
	b, err := c.opts.Client.Get(ctx, c.opts.KeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.opts.Logger.Warn("redis get", zap.Error(err))
			c.disableClient()
		}
		return nil, false
	}

	var rec domain.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		c.opts.Logger.Warn("redis data unpack error", zap.Error(err))
		return nil, false
	}
	return &rec, true
}

// Set stores the record with the given TTL. Non-positive TTLs are
// dropped: a dead record must not enter the cache.
func (c *Cache) Set(ctx context.Context, key string, rec *domain.Record, ttl time.Duration) {
	if c.disabled() || ttl <= 0 {
		return
	}

	b, err := json.Marshal(rec)
	if err != nil {
		c.opts.Logger.Warn("redis data pack error", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.ClientTimeout)
	defer cancel()
	if err := c.opts.Client.Set(ctx, c.opts.KeyPrefix+key, b, ttl).Err(); err != nil {
		c.opts.Logger.Warn("redis set", zap.Error(err))
		c.disableClient()
	}
}

// Delete removes the record under key, best-effort.
func (c *Cache) Delete(ctx context.Context, key string) {
	if c.disabled() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.ClientTimeout)
	defer cancel()
	if err := c.opts.Client.Del(ctx, c.opts.KeyPrefix+key).Err(); err != nil {
		c.opts.Logger.Warn("redis del", zap.Error(err))
		c.disableClient()
	}
}

// Close closes the underlying client if a closer was provided.
func (c *Cache) Close() error {
	if f := c.opts.ClientCloser; f != nil {
		return f.Close()
	}
	return nil
}

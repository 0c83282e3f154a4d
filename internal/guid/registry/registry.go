// Package registry orchestrates the validator, the durable store, and
// the cache for the four record operations. The durable store is the
// single source of truth; the cache holds a time-bounded projection
// whose TTL is recomputed on every write (cache-aside reads,
// write-through mutations).
//
// The registry holds no mutable shared state: each operation is a
// short-lived orchestration over the two injected backends, so any
// number of operations may run concurrently. Ordering between
// concurrent updates to the same record is last-write-wins at the
// store, with no serialization guarantee to callers.
package registry

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"guidd/internal/cache"
	"guidd/internal/guid/domain"
)

// DefaultLifetime is applied when a create request carries no expire
// timestamp.
const DefaultLifetime = 30 * 24 * time.Hour

// DefaultCacheTTL caps how long a cache entry may outlive the write
// that produced it.
const DefaultCacheTTL = time.Hour

// Config assembles a Registry. Repo and Cache are required; zero values
// of the remaining fields fall back to defaults.
type Config struct {
	Repo  domain.RecordRepository
	Cache cache.Store

	// MaxCacheTTL caps per-entry cache TTLs. Default DefaultCacheTTL.
	MaxCacheTTL time.Duration
	// Lifetime is the default record lifetime when a create request
	// supplies no expire. Default DefaultLifetime.
	Lifetime time.Duration

	Logger *zap.Logger
	Tracer trace.Tracer

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Registry implements the four record operations.
type Registry struct {
	repo     domain.RecordRepository
	cache    cache.Store
	maxTTL   time.Duration
	lifetime time.Duration
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// New creates a Registry from cfg.
func New(cfg Config) *Registry {
	if cfg.MaxCacheTTL <= 0 {
		cfg.MaxCacheTTL = DefaultCacheTTL
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("registry")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		repo:     cfg.Repo,
		cache:    cfg.Cache,
		maxTTL:   cfg.MaxCacheTTL,
		lifetime: cfg.Lifetime,
		logger:   cfg.Logger,
		tracer:   cfg.Tracer,
		now:      cfg.Now,
	}
}

// NewID generates a fresh record identifier: a random 128-bit value
// rendered as 32 uppercase hexadecimal characters.
func NewID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Create validates the payload, persists a new record, and caches it.
// When id is empty a fresh identifier is generated. A missing expire
// defaults to the configured lifetime from now.
func (r *Registry) Create(ctx context.Context, id string, p domain.Payload) (*domain.Record, error) {
	ctx, span := r.tracer.Start(ctx, "registry.create")
	defer span.End()

	now := r.now()
	if errs := domain.Validate(p, domain.IntentCreate, now); len(errs) > 0 {
		return nil, &domain.ValidationError{Fields: errs}
	}

	if id == "" {
		id = NewID()
	}
	span.SetAttributes(attribute.String("guid", id))

	expire := now.Add(r.lifetime).Unix()
	if p.Expire.Set {
		// Already validated as digits and in the future.
		expire, _ = strconv.ParseInt(p.Expire.Value, 10, 64)
	}

	rec := &domain.Record{
		ID:     id,
		User:   p.User.Value,
		Expire: expire,
	}

	if err := r.repo.Insert(ctx, rec); err != nil {
		r.logger.Error("insert failed", zap.String("guid", id), zap.Error(err))
		return nil, err
	}

	r.cacheSet(ctx, rec, now)
	r.logger.Info("record created", zap.String("guid", id), zap.Int64("expire", expire))
	return rec, nil
}

// Get returns the live record under id, reading the cache first and
// falling back to the durable store on a miss. A cache entry is trusted
// until its own TTL expires; it is never re-validated against the
// store.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Record, error) {
	ctx, span := r.tracer.Start(ctx, "registry.get")
	defer span.End()

	if id == "" {
		return nil, domain.ErrMissingID
	}
	span.SetAttributes(attribute.String("guid", id))

	if rec, ok := r.cache.Get(ctx, id); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return rec, nil
	}

	now := r.now()
	rec, err := r.repo.FindLive(ctx, id, now)
	if err != nil {
		return nil, err
	}

	r.cacheSet(ctx, rec, now)
	return rec, nil
}

// Update merges the supplied fields into the existing record, then
// re-reads the full record so that the response and the refreshed
// cache entry reflect the complete merged state rather than just the
// fields the caller supplied.
func (r *Registry) Update(ctx context.Context, id string, p domain.Payload) (*domain.Record, error) {
	ctx, span := r.tracer.Start(ctx, "registry.update")
	defer span.End()

	if id == "" {
		return nil, domain.ErrMissingID
	}
	span.SetAttributes(attribute.String("guid", id))

	now := r.now()
	if errs := domain.Validate(p, domain.IntentUpdate, now); len(errs) > 0 {
		return nil, &domain.ValidationError{Fields: errs}
	}

	var user *string
	if p.User.Set {
		user = &p.User.Value
	}
	var expire *int64
	if p.Expire.Set {
		ts, _ := strconv.ParseInt(p.Expire.Value, 10, 64)
		expire = &ts
	}

	if err := r.repo.Update(ctx, id, user, expire, now); err != nil {
		r.logger.Error("update failed", zap.String("guid", id), zap.Error(err))
		return nil, err
	}

	rec, err := r.repo.FindLive(ctx, id, now)
	if err != nil {
		return nil, err
	}

	r.cacheSet(ctx, rec, now)
	r.logger.Info("record updated", zap.String("guid", id))
	return rec, nil
}

// Delete removes the record from the durable store and, best-effort,
// from the cache. A stale cache entry that survives the store delete is
// tolerated only until its own TTL.
func (r *Registry) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "registry.delete")
	defer span.End()

	if id == "" {
		return domain.ErrMissingID
	}
	span.SetAttributes(attribute.String("guid", id))

	if err := r.repo.Delete(ctx, id, r.now()); err != nil {
		return err
	}

	r.cache.Delete(ctx, id)
	r.logger.Info("record deleted", zap.String("guid", id))
	return nil
}

// cacheSet writes the record into the cache with its TTL aligned to the
// record's remaining lifetime. Dead records are never cached.
func (r *Registry) cacheSet(ctx context.Context, rec *domain.Record, now time.Time) {
	ttl, ok := cacheTTL(rec.Expire, now, r.maxTTL)
	if !ok {
		return
	}
	r.cache.Set(ctx, rec.ID, rec, ttl)
}

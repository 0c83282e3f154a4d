// Package cache defines the ephemeral record cache contract. The cache
// holds derived snapshots of durable records, never authoritative
// state: backends absorb their own failures so that a broken or
// unreachable cache degrades to a durable store lookup instead of
// failing the request.
package cache

import (
	"context"
	"io"
	"time"

	"guidd/internal/guid/domain"
)

// Store is a key-value cache with per-entry expiry.
//
// Get reports a miss for absent, expired, and unreadable entries alike.
// Set and Delete are best-effort: implementations log failures and
// return nothing, because a cache write failure after a successful
// durable store mutation must not fail the operation.
type Store interface {
	Get(ctx context.Context, key string) (*domain.Record, bool)
	Set(ctx context.Context, key string, rec *domain.Record, ttl time.Duration)
	Delete(ctx context.Context, key string)

	io.Closer
}

package registry

import "time"

// cacheTTL aligns a cache entry's TTL with the record's remaining
// lifetime: the entry may live for min(max, expire-now), and a record
// that is already dead must not be cached at all (ok is false). This
// keeps the cache from serving a record past its domain expiration,
// which the durable store's liveness filter would otherwise have
// hidden.
func cacheTTL(expire int64, now time.Time, max time.Duration) (ttl time.Duration, ok bool) {
	remaining := time.Duration(expire-now.Unix()) * time.Second
	if remaining <= 0 {
		return 0, false
	}
	if remaining < max {
		return remaining, true
	}
	return max, true
}

// Package cache defines the pluggable key/value Store capability used by the
// HTTP-cache plugin (spec §4.3/§9): in-memory LRU-with-TTL, Redis, and
// Cloudflare KV backends, all internally synchronized so the manager can
// treat them as opaque shared resources.
package cache

import (
	"context"
	"time"
)

// Store is the common capability every cache backend implements.
type Store interface {
	// Get returns the stored value and true on a hit, or (nil, false) on a
	// miss. Callers treat a StoreError as a miss (§7) and do not log it:
	// the cache is best-effort.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

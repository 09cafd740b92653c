// Package cache provides the response cache used to avoid re-querying slow or
// metered catalog services. Entries carry an explicit expiry; a read past
// expiry is a miss, never a stale value.
package cache

import (
	"context"
	"time"
)

// Store is the response cache contract. Implementations must be safe for
// concurrent use; writes to the same key are last-write-wins.
type Store interface {
	// Get returns the raw payload for key, or ok=false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Delete removes key from the cache.
	Delete(ctx context.Context, key string)
}

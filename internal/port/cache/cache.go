// Package cache defines the port for the bounded recently-seen cache used
// to make event processing idempotent under at-least-once delivery.
package cache

import (
	"context"
	"time"
)

// Cache is a bounded TTL key-value cache. Entries may be evicted before
// their TTL under memory pressure; eviction degrades dedup to
// at-most-double-counting, which the accumulator tolerates.
type Cache interface {
	// Get retrieves a value. ok is false when the key is absent.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error
}

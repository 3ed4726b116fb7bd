// Package cache stores rendered pages for a fixed time-to-live.
//
// Entries are never invalidated by writes to the underlying data; they disappear when their
// TTL elapses or when Clear is called. Two backends exist: Redis for multi-instance
// deployments and an in-process map used when Redis is disabled and in tests.
package cache

import (
	"context"
	"time"
)

// Store is a byte cache with per-entry expiry.
type Store interface {
	// Get returns the cached value and whether it was present and not expired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key for ttl. A non-positive ttl uses DefaultTTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Clear drops every entry owned by this store.
	Clear(ctx context.Context)
}

// DefaultTTL applies when Set is called without a positive ttl.
const DefaultTTL = 20 * time.Second

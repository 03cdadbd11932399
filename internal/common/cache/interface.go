// Package cache stores small text blobs by key.
package cache

import (
	"context"
	"time"
)

// Cache defines the key-value operations the agent needs.
// Get reports an absent key with an error carrying the CacheMiss code.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value. A zero ttl means the key never expires.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	Ping(ctx context.Context) error
	Close() error
}

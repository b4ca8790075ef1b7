// Package cache provides a small keyed cache with TTL expiry used for read-heavy
// catalog queries.
package cache

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is how long query results stay fresh unless a caller says otherwise
const DefaultTTL = 5 * time.Minute

// ErrUnsupportedDriver is returned by New for an unknown driver name
var ErrUnsupportedDriver = errors.New("unsupported cache driver")

// Cache stores JSON-serializable values by key.
type Cache interface {
	// Get decodes the value stored at key into dest. The boolean is false on a
	// miss or an expired entry.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// Set stores value under key. A ttl <= 0 means DefaultTTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Invalidate removes the given keys.
	Invalidate(ctx context.Context, keys ...string) error
	// InvalidatePrefix removes every key starting with prefix.
	InvalidatePrefix(ctx context.Context, prefix string) error
}

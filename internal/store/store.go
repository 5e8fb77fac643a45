// Package store provides the backing key-value surface the cache strategies
// run on: a Redis-backed implementation for shared deployments, a bounded
// in-process implementation, and a supervisor that degrades from the former
// to the latter when the network goes away.
package store

import (
	"context"
	"time"
)

// TTL sentinels, matching Redis TTL semantics.
const (
	// TTLMissing reports that the key does not exist (or has expired).
	TTLMissing time.Duration = -2
	// TTLNone reports that the key exists without an expiry.
	TTLNone time.Duration = -1
)

// Store is the uniform surface shared by the remote and in-process backends.
// All values are opaque byte slices; serialization belongs to callers.
//
// Get returns (nil, nil) when the key is absent — absence is not an error.
// A zero ttl on Set means the entry never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)

	// ScanKeys returns the keys matching a glob pattern (* and ? wildcards).
	// The result is a point-in-time snapshot: keys written concurrently may
	// or may not appear.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	// TTL returns the remaining lifetime of key, TTLNone for keys without an
	// expiry, or TTLMissing for absent keys.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// IncrBy and IncrByFloat atomically adjust numeric counters, creating
	// them at zero on first use, and return the new value.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	IncrByFloat(ctx context.Context, key string, delta float64) (float64, error)

	// FlushAll removes every entry in the store's database.
	FlushAll(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error
}

// Package store is the ephemeral key/value storage used for every short-lived credential:
// auth states, sessions, verification tokens and download tokens. Entries carry an optional
// time to live and are logically gone once it elapses, whichever backend holds them.
package store

import (
	"context"
	"errors"
	"time"
)

// Values reported by TTL when no positive remaining lifetime exists.
const (
	NoExpiry int64 = -1 // key exists without an expiry
	Absent   int64 = -2 // key does not exist or has expired
)

// Backend kinds reported by Store.Kind.
const (
	KindRedis  = "redis"
	KindMemory = "memory"
)

var ErrNotFound = errors.New("key not found")

// Store is implemented by the Redis backend and the in-process fallback. Calling code must
// not be able to tell them apart.
type Store interface {
	// Set stores value under key. A zero ttl stores the value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns ErrNotFound for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)

	// Replace overwrites an existing value keeping its remaining lifetime.
	// It returns ErrNotFound when the key is absent or expired.
	Replace(ctx context.Context, key string, value []byte) error

	// Delete is idempotent.
	Delete(ctx context.Context, key string) error

	// TTL returns the remaining lifetime in whole seconds (rounded up), NoExpiry or Absent.
	TTL(ctx context.Context, key string) (int64, error)

	Kind() string
	Close() error
}

package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks a store failure (connection refused, timeout, protocol
// error). It is never returned for a missing key.
var ErrUnavailable = errors.New("credential store unavailable")

// TTL sentinels returned by Store.TTL.
const (
	NoExpiry   time.Duration = -1
	KeyMissing time.Duration = -2
)

// Store is the shared key-value contract the session lifecycle and rate
// limiter depend on. Every operation is individually atomic; callers get no
// cross-operation transactions.
type Store interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns ("", false, nil) when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Expire sets the key TTL. It reports false when the key does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)

	// SetAdd adds member and extends the set TTL to ttl when that is longer
	// than the current one.
	SetAdd(ctx context.Context, key, member string, ttl time.Duration) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetRemove(ctx context.Context, key string, members ...string) error
	SetSize(ctx context.Context, key string) (int64, error)

	// Increment atomically adds one and returns the new value. A missing key
	// starts at zero and carries no TTL.
	Increment(ctx context.Context, key string) (int64, error)

	// Scan lists keys matching a glob pattern.
	Scan(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
}

// Package cache provides byte-oriented storage backends for registry content.
//
// Registry subtrees and blobs are addressed by their Git object SHA, so once
// fetched they never change. Storing them here lets repeated runs skip the
// network for everything except the registry's root tree.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: a shared Redis instance (server deployments)
//   - [NullCache]: stores nothing
//
// [NewScoped] wraps any backend with a key prefix so several registries can
// share one store.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache stores opaque values by key. A zero TTL means the entry never
// expires. Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. A miss is reported as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Options configures [Open].
type Options struct {
	Dir           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open creates the named backend. An empty name selects the file backend.
func Open(ctx context.Context, backend string, opts Options) (Cache, error) {
	switch backend {
	case "", BackendFile:
		fc, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	case BackendRedis:
		return NewRedisCache(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	case BackendNone:
		return NewNullCache(), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", backend)
}

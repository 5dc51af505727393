package cache

import (
	"context"
	"time"
)

// Scoped prefixes every key before handing it to the wrapped cache, giving
// each registry its own namespace inside a shared backend.
type Scoped struct {
	inner  Cache
	prefix string
}

// NewScoped wraps inner so all keys are prefixed. A nil inner behaves like
// [NullCache].
func NewScoped(inner Cache, prefix string) Cache {
	if inner == nil {
		inner = NewNullCache()
	}
	return &Scoped{inner: inner, prefix: prefix}
}

// Get retrieves a prefixed key.
func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

// Set stores a prefixed key.
func (s *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

// Delete removes a prefixed key.
func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close does not close the wrapped cache, which may be shared.
func (s *Scoped) Close() error { return nil }

var _ Cache = (*Scoped)(nil)

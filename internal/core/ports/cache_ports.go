package ports

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheStale is returned by SetWithTTL when the key was invalidated
	// after the generation passed in was observed. The value is not stored.
	ErrCacheStale = errors.New("cache entry invalidated since read")
)

// Cache is a TTL key/value store. Every key carries a generation that Delete
// advances; Get reports the current generation alongside a miss so a later
// fill can be rejected if an invalidation happened in between.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, generation uint64, err error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration, generation uint64) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

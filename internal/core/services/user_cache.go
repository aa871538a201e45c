package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/user-service/internal/core/domain"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
)

const invalidateTimeout = 5 * time.Second

// CacheTicket is what a Read leaves behind for the Populate that follows it.
type CacheTicket struct {
	generation uint64
	fillable   bool
}

// UserCache keeps public user projections in front of the durable store.
// Entries are only ever populated from a fresh durable read and removed on
// writes; they are never patched in place.
type UserCache struct {
	cache   ports.Cache
	ttl     time.Duration
	metrics ports.Metrics
	logger  *slog.Logger
}

func NewUserCache(cache ports.Cache, ttl time.Duration, metrics ports.Metrics, logger *slog.Logger) *UserCache {
	return &UserCache{
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func userCacheKey(id uuid.UUID) string {
	return "user:" + id.String()
}

// Read returns the cached projection, or ok=false on a miss. Cache errors
// are logged and reported as a miss; the durable store stays authoritative.
func (c *UserCache) Read(ctx context.Context, id uuid.UUID) (*domain.PublicUser, CacheTicket, bool) {
	raw, generation, err := c.cache.Get(ctx, userCacheKey(id))
	if err != nil {
		if errors.Is(err, ports.ErrCacheMiss) {
			c.metrics.CacheLookup(ctx, false)
			c.metrics.CacheOperation(ctx, ports.CacheOpGet, ports.CacheStatusMiss)
			return nil, CacheTicket{generation: generation, fillable: true}, false
		}
		c.metrics.CacheOperation(ctx, ports.CacheOpGet, ports.CacheStatusError)
		c.logger.WarnContext(ctx, "cache read failed", "user_id", id, "error", err)
		return nil, CacheTicket{}, false
	}

	var user domain.PublicUser
	if err := json.Unmarshal(raw, &user); err != nil {
		c.metrics.CacheOperation(ctx, ports.CacheOpGet, ports.CacheStatusError)
		c.logger.WarnContext(ctx, "cache entry is corrupt", "user_id", id, "error", err)
		return nil, CacheTicket{generation: generation, fillable: true}, false
	}

	c.metrics.CacheLookup(ctx, true)
	c.metrics.CacheOperation(ctx, ports.CacheOpGet, ports.CacheStatusHit)
	return &user, CacheTicket{}, true
}

// Populate stores user for the configured TTL unless the key was invalidated
// after the read that produced ticket.
func (c *UserCache) Populate(ctx context.Context, user *domain.PublicUser, ticket CacheTicket) {
	if !ticket.fillable {
		return
	}

	raw, err := json.Marshal(user)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to encode user for cache", "user_id", user.ID, "error", err)
		return
	}

	err = c.cache.SetWithTTL(ctx, userCacheKey(user.ID), raw, c.ttl, ticket.generation)
	switch {
	case err == nil:
		c.metrics.CacheOperation(ctx, ports.CacheOpSet, ports.CacheStatusSuccess)
	case errors.Is(err, ports.ErrCacheStale):
		c.metrics.CacheOperation(ctx, ports.CacheOpSet, ports.CacheStatusSkipped)
		c.logger.DebugContext(ctx, "skipped stale cache fill", "user_id", user.ID)
	default:
		c.metrics.CacheOperation(ctx, ports.CacheOpSet, ports.CacheStatusError)
		c.logger.WarnContext(ctx, "cache populate failed", "user_id", user.ID, "error", err)
	}
}

// Invalidate deletes the entry for id. Callers run it only after the durable
// write has committed. It ignores cancellation of ctx so a client hanging up
// between commit and invalidation cannot leave a stale entry behind.
func (c *UserCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	if err := c.cache.Delete(ctx, userCacheKey(id)); err != nil {
		c.metrics.CacheOperation(ctx, ports.CacheOpDelete, ports.CacheStatusError)
		return err
	}
	c.metrics.CacheOperation(ctx, ports.CacheOpDelete, ports.CacheStatusSuccess)
	return nil
}

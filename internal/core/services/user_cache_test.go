package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/user-service/internal/core/domain"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
	"github.com/vncsmyrnk/user-service/internal/logging"
)

func newTestUserCache() (*UserCache, *memoryCache, *recordingMetrics) {
	cache := newMemoryCache()
	metrics := newRecordingMetrics()
	return NewUserCache(cache, time.Hour, metrics, logging.Discard()), cache, metrics
}

func samplePublicUser() *domain.PublicUser {
	id := uuid.New()
	return &domain.PublicUser{
		ID:          id,
		Name:        "Test",
		Email:       "t@example.com",
		Preferences: domain.Preferences{UserID: id, Email: true, Push: true},
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUserCache_MissThenPopulateThenHit(t *testing.T) {
	ctx := context.Background()
	uc, _, metrics := newTestUserCache()
	user := samplePublicUser()

	_, ticket, ok := uc.Read(ctx, user.ID)
	require.False(t, ok)

	uc.Populate(ctx, user, ticket)

	got, _, ok := uc.Read(ctx, user.ID)
	require.True(t, ok)
	assert.Equal(t, user, got)

	assert.Equal(t, 1, metrics.lookups[true])
	assert.Equal(t, 1, metrics.lookups[false])
	assert.Equal(t, 1, metrics.cacheOperations["set:success"])
}

func TestUserCache_InvalidateBetweenReadAndPopulateDropsFill(t *testing.T) {
	ctx := context.Background()
	uc, cache, metrics := newTestUserCache()
	user := samplePublicUser()

	_, ticket, ok := uc.Read(ctx, user.ID)
	require.False(t, ok)

	require.NoError(t, uc.Invalidate(ctx, user.ID))
	uc.Populate(ctx, user, ticket)

	assert.False(t, cache.has(userCacheKey(user.ID)))
	assert.Equal(t, 1, metrics.cacheOperations["set:skipped"])
}

func TestUserCache_InvalidateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newTestUserCache()
	id := uuid.New()

	require.NoError(t, uc.Invalidate(ctx, id))
	require.NoError(t, uc.Invalidate(ctx, id))
}

func TestUserCache_InvalidateIgnoresCallerCancellation(t *testing.T) {
	uc, cache, _ := newTestUserCache()
	user := samplePublicUser()

	_, ticket, _ := uc.Read(context.Background(), user.ID)
	uc.Populate(context.Background(), user, ticket)
	require.True(t, cache.has(userCacheKey(user.ID)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, uc.Invalidate(ctx, user.ID))
	assert.False(t, cache.has(userCacheKey(user.ID)))
}

func TestUserCache_ReadErrorIsMissWithoutFill(t *testing.T) {
	ctx := context.Background()
	uc, cache, metrics := newTestUserCache()
	user := samplePublicUser()
	cache.getErr = errBoom

	_, ticket, ok := uc.Read(ctx, user.ID)
	require.False(t, ok)
	assert.False(t, ticket.fillable)

	cache.getErr = nil
	uc.Populate(ctx, user, ticket)
	assert.False(t, cache.has(userCacheKey(user.ID)))
	assert.Equal(t, 1, metrics.cacheOperations["get:error"])
}

func TestUserCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	uc, cache, _ := newTestUserCache()
	id := uuid.New()
	cache.entries[userCacheKey(id)] = []byte("{not json")

	_, ticket, ok := uc.Read(ctx, id)
	require.False(t, ok)
	assert.True(t, ticket.fillable)
}

func TestUserCache_EntryNeverHoldsPasswordHash(t *testing.T) {
	ctx := context.Background()
	uc, cache, _ := newTestUserCache()
	u := &domain.User{ID: uuid.New(), Email: "a@example.com", PasswordHash: "$2a$secret-hash"}

	_, ticket, _ := uc.Read(ctx, u.ID)
	uc.Populate(ctx, u.Public(), ticket)

	raw, _, err := cache.Get(ctx, userCacheKey(u.ID))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-hash")
	assert.NotContains(t, string(raw), "password")
}

func TestUserCache_DeleteErrorIsReturned(t *testing.T) {
	uc, cache, metrics := newTestUserCache()
	cache.deleteErr = errBoom

	err := uc.Invalidate(context.Background(), uuid.New())
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, metrics.cacheOperations[ports.CacheOpDelete+":"+ports.CacheStatusError])
}

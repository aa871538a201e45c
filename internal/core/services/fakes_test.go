package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/user-service/internal/core/domain"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
)

var errBoom = errors.New("boom")

type memoryRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User

	findErr   error
	updateErr error
	countErr  error
	updates   int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[uuid.UUID]*domain.User)}
}

func clone(u *domain.User) *domain.User {
	c := *u
	if u.PushToken != nil {
		token := *u.PushToken
		c.PushToken = &token
	}
	return &c
}

func (r *memoryRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (r *memoryRepo) Insert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	r.users[user.ID] = clone(user)
	return nil
}

func (r *memoryRepo) UpdatePushToken(_ context.Context, id uuid.UUID, pushToken string) (*domain.User, error) {
	return r.update(id, func(u *domain.User) { u.PushToken = &pushToken })
}

func (r *memoryRepo) UpdatePreferences(_ context.Context, id uuid.UUID, prefs domain.Preferences) (*domain.User, error) {
	return r.update(id, func(u *domain.User) {
		u.Preferences.Email = prefs.Email
		u.Preferences.Push = prefs.Push
	})
}

func (r *memoryRepo) update(id uuid.UUID, apply func(*domain.User)) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	apply(u)
	r.updates++
	return clone(u), nil
}

func (r *memoryRepo) List(_ context.Context, offset, limit int) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, clone(u))
	}
	if offset >= len(all) {
		return []*domain.User{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (r *memoryRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	return int64(len(r.users)), nil
}

func (r *memoryRepo) Ping(context.Context) error { return nil }

type memoryCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	generations map[string]uint64

	getErr    error
	deleteErr error
	deletes   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		entries:     make(map[string][]byte),
		generations: make(map[string]uint64),
	}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, 0, c.getErr
	}
	v, ok := c.entries[key]
	if !ok {
		return nil, c.generations[key], ports.ErrCacheMiss
	}
	return v, c.generations[key], nil
}

func (c *memoryCache) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration, generation uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[key] != generation {
		return ports.ErrCacheStale
	}
	c.entries[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	delete(c.entries, key)
	c.generations[key]++
	c.deletes++
	return nil
}

func (c *memoryCache) Ping(context.Context) error { return nil }

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

type recordingMetrics struct {
	mu              sync.Mutex
	registrations   int
	logins          map[string]int
	refreshes       map[string]int
	lookups         map[bool]int
	cacheOperations map[string]int
	activeUsers     int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		logins:          make(map[string]int),
		refreshes:       make(map[string]int),
		lookups:         make(map[bool]int),
		cacheOperations: make(map[string]int),
	}
}

func (m *recordingMetrics) UserRegistered(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations++
}

func (m *recordingMetrics) LoginAttempt(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[outcome]++
}

func (m *recordingMetrics) TokenRefresh(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes[outcome]++
}

func (m *recordingMetrics) CacheLookup(_ context.Context, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups[hit]++
}

func (m *recordingMetrics) CacheOperation(_ context.Context, operation, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheOperations[operation+":"+status]++
}

func (m *recordingMetrics) ActiveUsers(_ context.Context, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeUsers = count
}

// Package repotest holds the behaviour every ports.UserRepository must share.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/user-service/internal/core/domain"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
)

// NewUser builds a user ready for Insert.
func NewUser(email string) *domain.User {
	id := uuid.New()
	return &domain.User{
		ID:           id,
		Name:         "User " + email,
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
		Preferences:  domain.Preferences{UserID: id, Email: true, Push: false},
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

// RunUserRepository runs the shared suite. newRepo must return an empty,
// migrated repository for every call.
func RunUserRepository(t *testing.T, newRepo func(t *testing.T) ports.UserRepository) {
	t.Run("insert and find", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		user := NewUser("find@example.com")

		require.NoError(t, repo.Insert(ctx, user))

		byID, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, byID.Email)
		assert.Equal(t, user.Name, byID.Name)
		assert.Equal(t, user.PasswordHash, byID.PasswordHash)
		assert.Nil(t, byID.PushToken)
		assert.Equal(t, user.Preferences, byID.Preferences)
		assert.True(t, user.CreatedAt.Equal(byID.CreatedAt), "created_at %v != %v", user.CreatedAt, byID.CreatedAt)

		byEmail, err := repo.FindByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
	})

	t.Run("not found", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.FindByID(ctx, uuid.Nil)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = repo.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = repo.UpdatePushToken(ctx, uuid.New(), "x")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = repo.UpdatePreferences(ctx, uuid.New(), domain.Preferences{})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Insert(ctx, NewUser("dup@example.com")))
		err := repo.Insert(ctx, NewUser("dup@example.com"))
		assert.ErrorIs(t, err, domain.ErrEmailTaken)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("concurrent duplicate email", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const workers = 4
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = repo.Insert(ctx, NewUser("race@example.com"))
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrEmailTaken)
		}
		assert.Equal(t, 1, succeeded)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("update push token", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		user := NewUser("push@example.com")
		require.NoError(t, repo.Insert(ctx, user))

		updated, err := repo.UpdatePushToken(ctx, user.ID, "token-1")
		require.NoError(t, err)
		require.NotNil(t, updated.PushToken)
		assert.Equal(t, "token-1", *updated.PushToken)

		reloaded, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.PushToken)
		assert.Equal(t, "token-1", *reloaded.PushToken)
	})

	t.Run("update preferences", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		user := NewUser("prefs@example.com")
		require.NoError(t, repo.Insert(ctx, user))

		updated, err := repo.UpdatePreferences(ctx, user.ID, domain.Preferences{Email: false, Push: true})
		require.NoError(t, err)
		assert.False(t, updated.Preferences.Email)
		assert.True(t, updated.Preferences.Push)
		assert.Equal(t, user.ID, updated.Preferences.UserID)
	})

	t.Run("list and count", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i := range 3 {
			u := NewUser(fmt.Sprintf("user%d@example.com", i))
			u.CreatedAt = u.CreatedAt.Add(time.Duration(i) * time.Second)
			require.NoError(t, repo.Insert(ctx, u))
		}

		all, err := repo.List(ctx, 0, 100)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "user0@example.com", all[0].Email)
		assert.Equal(t, "user2@example.com", all[2].Email)

		page, err := repo.List(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "user1@example.com", page[0].Email)

		empty, err := repo.List(ctx, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, empty)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(context.Background()))
	})
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/user-service/internal/core/domain"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

type UserService struct {
	repo    ports.UserRepository
	cache   *UserCache
	hasher  ports.PasswordHasher
	metrics ports.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewUserService(repo ports.UserRepository, cache *UserCache, hasher ports.PasswordHasher, metrics ports.Metrics, logger *slog.Logger) *UserService {
	return &UserService{
		repo:    repo,
		cache:   cache,
		hasher:  hasher,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

var _ ports.UserService = (*UserService)(nil)

func (s *UserService) Register(ctx context.Context, input ports.RegisterInput) (*domain.PublicUser, error) {
	_, err := s.repo.FindByEmail(ctx, input.Email)
	if err == nil {
		return nil, domain.ErrEmailTaken
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	user := &domain.User{
		ID:           id,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Preferences: domain.Preferences{
			UserID: id,
			Email:  input.Preferences.Email,
			Push:   input.Preferences.Push,
		},
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	// The unique index settles concurrent registrations the pre-check missed.
	if err := s.repo.Insert(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.UserRegistered(ctx)
	s.RefreshActiveUsers(ctx)
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	return user.Public(), nil
}

// GetByID serves from the cache when possible and fills it on a miss.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.PublicUser, error) {
	cached, ticket, ok := s.cache.Read(ctx, id)
	if ok {
		return cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	public := user.Public()
	s.cache.Populate(ctx, public, ticket)
	return public, nil
}

func (s *UserService) List(ctx context.Context, input ports.ListUsersInput) (*ports.UserPage, error) {
	skip := max(input.Skip, 0)
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	users, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	page := &ports.UserPage{
		Users: make([]*domain.PublicUser, 0, len(users)),
		Total: total,
		Skip:  skip,
		Limit: limit,
	}
	for _, u := range users {
		page.Users = append(page.Users, u.Public())
	}
	return page, nil
}

func (s *UserService) UpdatePushToken(ctx context.Context, userID, callerID uuid.UUID, pushToken string) (*domain.PublicUser, error) {
	if userID != callerID {
		return nil, domain.ErrForbidden
	}

	user, err := s.repo.UpdatePushToken(ctx, userID, pushToken)
	if err != nil {
		return nil, s.wrapUpdateErr(err)
	}
	if err := s.invalidate(ctx, userID); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "push token updated", "user_id", userID)
	return user.Public(), nil
}

func (s *UserService) UpdatePreferences(ctx context.Context, userID, callerID uuid.UUID, prefs domain.Preferences) (*domain.PublicUser, error) {
	if userID != callerID {
		return nil, domain.ErrForbidden
	}

	user, err := s.repo.UpdatePreferences(ctx, userID, prefs)
	if err != nil {
		return nil, s.wrapUpdateErr(err)
	}
	if err := s.invalidate(ctx, userID); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "preferences updated", "user_id", userID)
	return user.Public(), nil
}

// RefreshActiveUsers publishes the current user count to the gauge.
func (s *UserService) RefreshActiveUsers(ctx context.Context) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to count users", "error", err)
		return
	}
	s.metrics.ActiveUsers(ctx, n)
}

// invalidate runs after the durable write has committed. A failure here is
// surfaced so the caller can retry the update, which invalidates again.
func (s *UserService) invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "cache invalidation failed after commit", "user_id", userID, "error", err)
		return fmt.Errorf("failed to invalidate cached user: %w", err)
	}
	return nil
}

func (s *UserService) wrapUpdateErr(err error) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	return fmt.Errorf("failed to update user: %w", err)
}

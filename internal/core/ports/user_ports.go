package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/user-service/internal/core/domain"
)

// UserRepository is the durable user store. Lookups return
// domain.ErrUserNotFound when no row matches; Insert returns
// domain.ErrEmailTaken on a unique-email violation.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// Insert stores the user and its preferences in a single transaction.
	Insert(ctx context.Context, user *domain.User) error
	UpdatePushToken(ctx context.Context, id uuid.UUID, pushToken string) (*domain.User, error)
	UpdatePreferences(ctx context.Context, id uuid.UUID, prefs domain.Preferences) (*domain.User, error)
	List(ctx context.Context, offset, limit int) ([]*domain.User, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Preferences domain.Preferences
}

type ListUsersInput struct {
	Skip  int
	Limit int
}

type UserPage struct {
	Users []*domain.PublicUser
	Total int64
	Skip  int
	Limit int
}

type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.PublicUser, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PublicUser, error)
	List(ctx context.Context, input ListUsersInput) (*UserPage, error)
	UpdatePushToken(ctx context.Context, userID, callerID uuid.UUID, pushToken string) (*domain.PublicUser, error)
	UpdatePreferences(ctx context.Context, userID, callerID uuid.UUID, prefs domain.Preferences) (*domain.PublicUser, error)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	PushToken    *string     `json:"push_token"`
	Preferences  Preferences `json:"preferences"`
	CreatedAt    time.Time   `json:"created_at"`
}

type Preferences struct {
	UserID uuid.UUID `json:"user_id"`
	Email  bool      `json:"email"`
	Push   bool      `json:"push"`
}

// PublicUser is the externally safe projection of a User. It is what the cache
// holds and what handlers return; it never carries the password hash.
type PublicUser struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	PushToken   *string     `json:"push_token"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		PushToken:   u.PushToken,
		Preferences: u.Preferences,
		CreatedAt:   u.CreatedAt,
	}
}

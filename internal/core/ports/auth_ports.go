package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/user-service/internal/core/domain"
)

// PasswordHasher is the one-way hash primitive behind credential checks.
// Verify reports a mismatch as false, never as an error.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, storedHash string) bool
}

// TokenCodec mints and parses signed bearer tokens. Parse returns
// domain.ErrInvalidToken for every failure; it does not look at the type tag.
type TokenCodec interface {
	Mint(subject string, tokenType domain.TokenType, now time.Time) (string, error)
	Parse(token string, now time.Time) (*domain.TokenClaims, error)
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.IssuedAccessToken, error)
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}

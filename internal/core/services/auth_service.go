package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vncsmyrnk/user-service/internal/core/domain"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
)

type AuthService struct {
	userRepo ports.UserRepository
	hasher   ports.PasswordHasher
	codec    ports.TokenCodec
	metrics  ports.Metrics
	logger   *slog.Logger
	now      func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(userRepo ports.UserRepository, hasher ports.PasswordHasher, codec ports.TokenCodec, metrics ports.Metrics, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		codec:    codec,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Login checks the password for email and returns a fresh access/refresh
// pair. Unknown email and wrong password both yield domain.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Spend the same hashing work as a real check so response time
			// does not reveal whether the account exists.
			s.hasher.Verify(password, s.decoy())
			s.metrics.LoginAttempt(ctx, ports.OutcomeFailed)
			s.logger.InfoContext(ctx, "login rejected")
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.LoginAttempt(ctx, ports.OutcomeFailed)
		s.logger.InfoContext(ctx, "login rejected", "user_id", user.ID)
		return nil, domain.ErrUnauthorized
	}

	now := s.now()
	accessToken, err := s.codec.Mint(user.Email, domain.AccessToken, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.codec.Mint(user.Email, domain.RefreshToken, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	s.metrics.LoginAttempt(ctx, ports.OutcomeSuccess)
	s.logger.InfoContext(ctx, "login succeeded", "user_id", user.ID)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    domain.BearerTokenType,
	}, nil
}

// Refresh mints a new access token from a valid refresh token whose subject
// still exists. The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.IssuedAccessToken, error) {
	user, err := s.resolve(ctx, refreshToken, domain.RefreshToken)
	if err != nil {
		s.metrics.TokenRefresh(ctx, ports.OutcomeFailed)
		return nil, err
	}

	accessToken, err := s.codec.Mint(user.Email, domain.AccessToken, s.now())
	if err != nil {
		s.metrics.TokenRefresh(ctx, ports.OutcomeFailed)
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	s.metrics.TokenRefresh(ctx, ports.OutcomeSuccess)
	return &domain.IssuedAccessToken{
		AccessToken: accessToken,
		TokenType:   domain.BearerTokenType,
	}, nil
}

// Authenticate resolves a bearer access token to its current user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	return s.resolve(ctx, accessToken, domain.AccessToken)
}

func (s *AuthService) resolve(ctx context.Context, token string, want domain.TokenType) (*domain.User, error) {
	claims, err := s.codec.Parse(token, s.now())
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	if claims.Type != want {
		s.logger.DebugContext(ctx, "token type mismatch", "want", want, "got", claims.Type)
		return nil, domain.ErrUnauthorized
	}

	user, err := s.userRepo.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *AuthService) decoy() string {
	s.decoyOnce.Do(func() {
		buf := make([]byte, 16)
		_, _ = rand.Read(buf)
		hash, err := s.hasher.Hash(hex.EncodeToString(buf))
		if err != nil {
			s.logger.Error("failed to build decoy hash", "error", err)
			return
		}
		s.decoyHash = hash
	})
	return s.decoyHash
}

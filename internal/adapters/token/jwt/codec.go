package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vncsmyrnk/user-service/internal/core/domain"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
)

type claims struct {
	jwt.RegisteredClaims
	Type domain.TokenType `json:"type"`
}

// Codec signs tokens with HS256. The secret is read once at construction.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCodec(secret, issuer string, accessTTL, refreshTTL time.Duration) ports.TokenCodec {
	return &Codec{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Mint signs a token for subject. JWT dates have whole-second resolution, so
// now is truncated to its second: the token is valid until
// now.Truncate(time.Second)+ttl, up to one second short of now+ttl.
func (c *Codec) Mint(subject string, tokenType domain.TokenType, now time.Time) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required")
	}

	var ttl time.Duration
	switch tokenType {
	case domain.AccessToken:
		ttl = c.accessTTL
	case domain.RefreshToken:
		ttl = c.refreshTTL
	default:
		return "", errors.New("unknown token type")
	}

	now = now.Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: tokenType,
	})
	return token.SignedString(c.secret)
}

func (c *Codec) Parse(tokenString string, now time.Time) (*domain.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	parsed := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	if parsed.Subject == "" || !parsed.Type.Valid() {
		return nil, domain.ErrInvalidToken
	}

	out := &domain.TokenClaims{
		Subject:   parsed.Subject,
		Type:      parsed.Type,
		ExpiresAt: parsed.ExpiresAt.Time,
	}
	if parsed.IssuedAt != nil {
		out.IssuedAt = parsed.IssuedAt.Time
	}
	return out, nil
}

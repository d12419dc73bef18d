package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vendaflow/crm-api/internal/config"
)

var (
	// ErrInvalidToken is returned for malformed, expired, or mis-signed tokens
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the JWT payload carried by bearer tokens
type Claims struct {
	Email       string   `json:"email"`
	DisplayName string   `json:"name"`
	Roles       []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HMAC bearer tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a token issuer from auth configuration
func NewTokenIssuer(cfg *config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTLDuration(),
	}
}

// Issue creates a signed token for a user
func (t *TokenIssuer) Issue(userID, email, displayName string, roles []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email:       email,
		DisplayName: displayName,
		Roles:       roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, returning its claims
func (t *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

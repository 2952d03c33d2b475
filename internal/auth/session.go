// Package auth issues and validates the JWT session tokens used by the
// OAuth-session credential path (spec.md §4.1).
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common session token errors.
var (
	ErrInvalidToken        = errors.New("invalid session token")
	ErrExpiredToken        = errors.New("session token has expired")
	ErrInvalidSecretLength = errors.New("jwt signing key must be at least 32 characters")
)

// Claims is the payload carried by a session token: the authenticated
// user and the workspace they own, if any.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string `json:"uid"`
	Email       string `json:"email"`
	WorkspaceID string `json:"wsid,omitempty"`
}

// SessionConfig configures token issuance.
type SessionConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// SessionService issues and validates OAuth session tokens.
type SessionService struct {
	cfg SessionConfig
}

// NewSessionService constructs a SessionService, rejecting signing keys
// shorter than 32 characters (HS256's minimum recommended key size).
func NewSessionService(cfg SessionConfig) (*SessionService, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "mdplane"
	}
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &SessionService{cfg: cfg}, nil
}

// IssueSession creates a signed session token for an authenticated user.
func (s *SessionService) IssueSession(userID, email, workspaceID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.TTL)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:      userID,
		Email:       email,
		WorkspaceID: workspaceID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateSession parses and verifies a session token.
func (s *SessionService) ValidateSession(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

package auth

import (
	"testing"
	"time"
)

const testSecret = "test-signing-key-at-least-32-bytes-long"

func TestNewSessionService_RejectsShortSecret(t *testing.T) {
	if _, err := NewSessionService(SessionConfig{Secret: "too-short"}); err != ErrInvalidSecretLength {
		t.Fatalf("got %v, want ErrInvalidSecretLength", err)
	}
}

func TestIssueAndValidateSession_RoundTrips(t *testing.T) {
	s, err := NewSessionService(SessionConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("new session service: %v", err)
	}
	token, expiresAt, err := s.IssueSession("usr_1", "alice@example.com", "ws_1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if expiresAt.Before(time.Now()) {
		t.Fatal("expiresAt should be in the future")
	}
	claims, err := s.ValidateSession(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "usr_1" || claims.Email != "alice@example.com" || claims.WorkspaceID != "ws_1" {
		t.Errorf("claims = %+v, want the issued values", claims)
	}
}

func TestValidateSession_RejectsTokenSignedWithDifferentSecret(t *testing.T) {
	s1, err := NewSessionService(SessionConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("new session service: %v", err)
	}
	s2, err := NewSessionService(SessionConfig{Secret: "a-completely-different-signing-key-32b"})
	if err != nil {
		t.Fatalf("new session service: %v", err)
	}
	token, _, err := s1.IssueSession("usr_1", "alice@example.com", "ws_1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := s2.ValidateSession(token); err != ErrInvalidToken {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestValidateSession_RejectsExpiredToken(t *testing.T) {
	s, err := NewSessionService(SessionConfig{Secret: testSecret, TTL: time.Millisecond})
	if err != nil {
		t.Fatalf("new session service: %v", err)
	}
	token, _, err := s.IssueSession("usr_1", "alice@example.com", "ws_1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := s.ValidateSession(token); err != ErrExpiredToken {
		t.Fatalf("got %v, want ErrExpiredToken", err)
	}
}

func TestValidateSession_RejectsGarbage(t *testing.T) {
	s, err := NewSessionService(SessionConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("new session service: %v", err)
	}
	if _, err := s.ValidateSession("not.a.jwt"); err != ErrInvalidToken {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestNewSessionService_DefaultsIssuerAndTTL(t *testing.T) {
	s, err := NewSessionService(SessionConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("new session service: %v", err)
	}
	if s.cfg.Issuer != "mdplane" {
		t.Errorf("issuer = %q, want default mdplane", s.cfg.Issuer)
	}
	if s.cfg.TTL != 24*time.Hour {
		t.Errorf("ttl = %v, want default 24h", s.cfg.TTL)
	}
}

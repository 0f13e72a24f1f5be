package auth

import (
	"errors"
	"testing"
	"time"

	"call-screening/internal/config"
)

func newManager(t *testing.T, ttl time.Duration) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(config.TokenConfig{Secret: "secret", TTL: ttl})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerifyToolToken(t *testing.T) {
	m := newManager(t, time.Hour)
	now := time.Unix(1700000000, 0).UTC()

	tok, err := m.Issue(now, "sess-1", "accept_call")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Verify(tok, "sess-1", "accept_call", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.SessionID != "sess-1" || claims.Function != "accept_call" || claims.ID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsOtherFunctionOrSession(t *testing.T) {
	m := newManager(t, time.Hour)
	now := time.Now()
	tok, err := m.Issue(now, "sess-1", "accept_call")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(tok, "sess-1", "reject_call", now); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected mismatch for function, got %v", err)
	}
	if _, err := m.Verify(tok, "sess-2", "accept_call", now); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected mismatch for session, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := newManager(t, time.Minute)
	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.Issue(now, "s", "f")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(tok, "s", "f", now.Add(5*time.Minute)); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid (expired), got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	a := newManager(t, time.Hour)
	b, _ := NewTokenManager(config.TokenConfig{Secret: "other", TTL: time.Hour})
	now := time.Now()
	tok, _ := a.Issue(now, "s", "f")
	if _, err := b.Verify(tok, "s", "f", now); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager(config.TokenConfig{TTL: time.Hour}); err == nil {
		t.Fatalf("expected error")
	}
}

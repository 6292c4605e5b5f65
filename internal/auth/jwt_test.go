package auth

import (
	"strings"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService(t *testing.T) {
	if _, err := NewTokenService("short", 0); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}

	ts, err := NewTokenService("this-is-16-chars", 0)
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error: %v", err)
	}
	if ts.ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want default %v", ts.ttl, DefaultTokenTTL)
	}
}

// =========================================================================
// GENERATE / VALIDATE
// =========================================================================

func TestGenerate_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-123", "alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if n := strings.Count(token, "."); n != 2 {
		t.Errorf("token has %d dots, want 2 (header.payload.signature)", n)
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("cv37rs3pp9olc6atsptg", "alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != "cv37rs3pp9olc6atsptg" {
		t.Errorf("Validate() userID = %q", got)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	other, _ := NewTokenService("another-secret-32-chars-long!!!!", 0)

	valid, _ := ts.Generate("user-123", "alice")
	expired, _ := ts.GenerateWithDuration("user-123", "alice", -time.Second)
	foreign, _ := other.Generate("user-123", "alice")
	noSubject, _ := ts.Generate("", "ghost")

	cases := map[string]string{
		"expired":         expired,
		"tampered":        valid[:len(valid)-3] + "xxx",
		"wrong secret":    foreign,
		"empty":           "",
		"garbage":         "not.a.jwt.token",
		"missing subject": noSubject,
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ts.Validate(token); err == nil {
				t.Fatalf("Validate() accepted a %s token", name)
			}
		})
	}
}

func TestGenerate_UsesConfiguredTTL(t *testing.T) {
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, err := ts.Generate("user-123", "alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := ts.Validate(token); err != nil {
		t.Fatalf("Validate() on 1h token error = %v", err)
	}
}

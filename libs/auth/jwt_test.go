package auth

import (
	"strings"
	"testing"
	"time"
)

func TestSignAndVerifyHS256(t *testing.T) {
	now := time.Date(2026, 1, 28, 9, 0, 0, 0, time.UTC)
	claims := Claims{
		Sub:      "pro-1",
		TenantID: "tenant-1",
		Role:     "professional",
		Iat:      now.Unix(),
		Exp:      now.Add(time.Hour).Unix(),
	}
	token, err := SignHS256(claims, "secret")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	got, err := ParseAndVerifyHS256(token, "secret", now)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if got.Sub != "pro-1" || got.TenantID != "tenant-1" || got.Role != "professional" {
		t.Fatalf("unexpected claims %+v", got)
	}

	if _, err := ParseAndVerifyHS256(token, "other", now); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "secret", now.Add(2*time.Hour)); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	now := time.Now()
	for _, token := range []string{"", "a.b", "a.b.c", strings.Repeat(".", 3)} {
		if _, err := ParseAndVerifyHS256(token, "secret", now); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}

func TestVerifyRequiresSubjectAndTenant(t *testing.T) {
	now := time.Now()
	token, err := SignHS256(Claims{Sub: "pro-1"}, "secret")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "secret", now); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken without tenant, got %v", err)
	}
}

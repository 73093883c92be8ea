package auth

import (
	"testing"
	"time"

	"github.com/cafeflow/cafeflow/internal/domain"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	admin := &domain.Admin{ID: "a1", Email: "admin@example.com"}
	token, err := issuer.Issue(admin)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("failed to verify token: %v", err)
	}
	if claims.AdminID != "a1" {
		t.Errorf("expected admin id a1, got %s", claims.AdminID)
	}
	if claims.Email != "admin@example.com" {
		t.Errorf("unexpected email: %s", claims.Email)
	}
}

func TestTokenIssuer_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	other := NewTokenIssuer("other-secret", time.Hour)

	token, err := issuer.Issue(&domain.Admin{ID: "a1", Email: "admin@example.com"})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	if _, err := other.Verify(token); err == nil {
		t.Error("expected verification to fail with a different secret")
	}
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Issue(&domain.Admin{ID: "a1", Email: "admin@example.com"})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	if _, err := issuer.Verify(token); err == nil {
		t.Error("expected verification to fail for an expired token")
	}
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	if _, err := issuer.Verify("not-a-token"); err == nil {
		t.Error("expected verification to fail for malformed input")
	}
}

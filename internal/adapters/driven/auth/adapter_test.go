package auth

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

func TestAdapter_TokenRoundTrip(t *testing.T) {
	a := NewAdapter("test-secret")

	now := time.Now()
	claims := &domain.TokenClaims{
		UserID:    "user-1",
		TenantID:  "tenant-1",
		Role:      domain.RoleAdmin,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}

	token, err := a.GenerateToken(claims)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	parsed, err := a.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.UserID != "user-1" || parsed.TenantID != "tenant-1" {
		t.Errorf("claims mismatch: %+v", parsed)
	}
	if !parsed.IsAdmin() {
		t.Error("expected admin role")
	}
}

func TestAdapter_RejectsBadTokens(t *testing.T) {
	a := NewAdapter("test-secret")
	other := NewAdapter("other-secret")

	claims := &domain.TokenClaims{
		UserID:    "user-1",
		TenantID:  "tenant-1",
		Role:      domain.RoleMember,
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}

	token, _ := other.GenerateToken(claims)
	if _, err := a.ParseToken(token); err == nil {
		t.Error("expected error for token signed with wrong secret")
	}

	if _, err := a.ParseToken("not.a.token"); err == nil {
		t.Error("expected error for malformed token")
	}

	expired := &domain.TokenClaims{
		UserID:    "user-1",
		TenantID:  "tenant-1",
		IssuedAt:  time.Now().Add(-2 * time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}
	token, _ = a.GenerateToken(expired)
	if _, err := a.ParseToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestCronHasher(t *testing.T) {
	h := NewCronHasherWithCost("pepper-1", bcrypt.MinCost)

	hash, err := h.Hash("dfc_secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "dfc_secret" {
		t.Fatal("hash must not equal the secret")
	}

	if !h.Verify("dfc_secret", hash) {
		t.Error("expected matching secret to verify")
	}
	if h.Verify("dfc_wrong", hash) {
		t.Error("expected wrong secret to fail")
	}

	// A different pepper invalidates every hash
	h2 := NewCronHasherWithCost("pepper-2", bcrypt.MinCost)
	if h2.Verify("dfc_secret", hash) {
		t.Error("expected hash to fail under a different pepper")
	}
}

func TestCronHasher_HashesDiffer(t *testing.T) {
	h := NewCronHasherWithCost("pepper", bcrypt.MinCost)

	h1, _ := h.Hash("dfc_secret")
	h2, _ := h.Hash("dfc_secret")
	if h1 == h2 {
		t.Error("bcrypt salting should produce distinct hashes")
	}
	if !h.Verify("dfc_secret", h1) || !h.Verify("dfc_secret", h2) {
		t.Error("both hashes must verify")
	}
}

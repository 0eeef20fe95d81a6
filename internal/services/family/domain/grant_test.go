package domain

import (
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	apperrors "github.com/keepsakehq/keepsake/internal/platform/errors"
)

func testGrantConfig(t *testing.T, now time.Time) GrantConfig {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return GrantConfig{
		Issuer:     "keepsake",
		Audience:   "keepsake-invite",
		PublicKey:  pub,
		PrivateKey: priv,
		Now:        func() time.Time { return now },
	}
}

func TestGrantRoundTrip(t *testing.T) {
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	cfg := testGrantConfig(t, now)

	grant, err := SignGrant("invite-1", "family-1", "gran@example.com", now.Add(time.Hour), cfg)
	if err != nil {
		t.Fatalf("SignGrant() error = %v", err)
	}

	claims, err := ValidateGrant(grant, cfg)
	if err != nil {
		t.Fatalf("ValidateGrant() error = %v", err)
	}
	if claims.InviteID != "invite-1" {
		t.Errorf("claims.InviteID = %q, want %q", claims.InviteID, "invite-1")
	}
	if claims.FamilyID != "family-1" {
		t.Errorf("claims.FamilyID = %q, want %q", claims.FamilyID, "family-1")
	}
	if claims.Email != "gran@example.com" {
		t.Errorf("claims.Email = %q, want %q", claims.Email, "gran@example.com")
	}
	if !claims.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("claims.ExpiresAt = %v, want %v", claims.ExpiresAt, now.Add(time.Hour))
	}
}

func TestValidateGrantRejectsExpired(t *testing.T) {
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	cfg := testGrantConfig(t, now)

	grant, err := SignGrant("invite-1", "family-1", "gran@example.com", now.Add(time.Hour), cfg)
	if err != nil {
		t.Fatalf("SignGrant() error = %v", err)
	}

	cfg.Now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := ValidateGrant(grant, cfg); !errors.Is(err, apperrors.New(apperrors.CodeInviteGrantExpired, "")) {
		t.Errorf("ValidateGrant(expired) error = %v, want code %s", err, apperrors.CodeInviteGrantExpired)
	}
}

func TestValidateGrantRejectsWrongKey(t *testing.T) {
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	signer := testGrantConfig(t, now)
	verifier := testGrantConfig(t, now)

	grant, err := SignGrant("invite-1", "family-1", "gran@example.com", now.Add(time.Hour), signer)
	if err != nil {
		t.Fatalf("SignGrant() error = %v", err)
	}

	if _, err := ValidateGrant(grant, verifier); !errors.Is(err, apperrors.New(apperrors.CodeInviteGrantInvalid, "")) {
		t.Errorf("ValidateGrant(wrong key) error = %v, want code %s", err, apperrors.CodeInviteGrantInvalid)
	}
}

func TestValidateGrantRejectsIssuerMismatch(t *testing.T) {
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	cfg := testGrantConfig(t, now)

	grant, err := SignGrant("invite-1", "family-1", "gran@example.com", now.Add(time.Hour), cfg)
	if err != nil {
		t.Fatalf("SignGrant() error = %v", err)
	}

	cfg.Issuer = "someone-else"
	if _, err := ValidateGrant(grant, cfg); !errors.Is(err, apperrors.New(apperrors.CodeInviteGrantInvalid, "")) {
		t.Errorf("ValidateGrant(issuer mismatch) error = %v, want code %s", err, apperrors.CodeInviteGrantInvalid)
	}
}

func TestValidateGrantRejectsGarbage(t *testing.T) {
	cfg := testGrantConfig(t, time.Now())

	for _, grant := range []string{"", "   ", "not.a.jwt"} {
		if _, err := ValidateGrant(grant, cfg); !errors.Is(err, apperrors.New(apperrors.CodeInviteGrantInvalid, "")) {
			t.Errorf("ValidateGrant(%q) error = %v, want code %s", grant, err, apperrors.CodeInviteGrantInvalid)
		}
	}
}

package domain

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/keepsakehq/keepsake/internal/platform/errors"
)

// inviteGrantEnv holds raw env values before post-parse validation.
type inviteGrantEnv struct {
	Issuer     string `env:"KEEPSAKE_INVITE_GRANT_ISSUER"`
	Audience   string `env:"KEEPSAKE_INVITE_GRANT_AUDIENCE"`
	PublicKey  string `env:"KEEPSAKE_INVITE_GRANT_PUBLIC_KEY"`
	PrivateKey string `env:"KEEPSAKE_INVITE_GRANT_PRIVATE_KEY"`
}

// GrantConfig defines how invite grants are signed and verified. The private
// key is only needed by the issuing process.
type GrantConfig struct {
	Issuer     string
	Audience   string
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	Now        func() time.Time
}

// GrantClaims captures validated invite grant claims.
type GrantClaims struct {
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	JWTID     string
	FamilyID  string
	InviteID  string
	Email     string
}

// inviteGrantClaims is the internal claims type used for JWT parsing.
type inviteGrantClaims struct {
	jwt.RegisteredClaims
	FamilyID string `json:"family_id"`
	InviteID string `json:"invite_id"`
	Email    string `json:"email"`
}

// LoadGrantConfigFromEnv reads invite grant configuration. The private key is
// optional; verification-only processes leave it unset.
func LoadGrantConfigFromEnv(now func() time.Time) (GrantConfig, error) {
	var raw inviteGrantEnv
	if err := env.Parse(&raw); err != nil {
		return GrantConfig{}, fmt.Errorf("parse invite grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return GrantConfig{}, fmt.Errorf("KEEPSAKE_INVITE_GRANT_ISSUER is required")
	}
	if audience == "" {
		return GrantConfig{}, fmt.Errorf("KEEPSAKE_INVITE_GRANT_AUDIENCE is required")
	}
	if publicKey == "" {
		return GrantConfig{}, fmt.Errorf("KEEPSAKE_INVITE_GRANT_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return GrantConfig{}, fmt.Errorf("decode invite grant public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return GrantConfig{}, fmt.Errorf("invite grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	cfg := GrantConfig{
		Issuer:    issuer,
		Audience:  audience,
		PublicKey: ed25519.PublicKey(keyBytes),
		Now:       now,
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if privateKey := strings.TrimSpace(raw.PrivateKey); privateKey != "" {
		privBytes, err := decodeBase64(privateKey)
		if err != nil {
			return GrantConfig{}, fmt.Errorf("decode invite grant private key: %w", err)
		}
		if len(privBytes) != ed25519.PrivateKeySize {
			return GrantConfig{}, fmt.Errorf("invite grant private key must be %d bytes", ed25519.PrivateKeySize)
		}
		cfg.PrivateKey = ed25519.PrivateKey(privBytes)
	}
	return cfg, nil
}

// SignGrant issues a signed invite grant token.
func SignGrant(inviteID string, familyID string, email string, expiresAt time.Time, cfg GrantConfig) (string, error) {
	if len(cfg.PrivateKey) != ed25519.PrivateKeySize {
		return "", errors.New("invite grant signer is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	now := cfg.Now().UTC()
	claims := inviteGrantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt.UTC()),
			ID:        inviteID,
		},
		FamilyID: familyID,
		InviteID: inviteID,
		Email:    email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(cfg.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("sign invite grant: %w", err)
	}
	return signed, nil
}

// ValidateGrant verifies an invite grant token and returns its claims.
//
// Single-use enforcement lives in the store; this only checks signature,
// issuer, audience, and time bounds.
func ValidateGrant(grant string, cfg GrantConfig) (GrantClaims, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return GrantClaims{}, apperrors.New(apperrors.CodeInviteGrantInvalid, "invite grant is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.PublicKey) != ed25519.PublicKeySize {
		return GrantClaims{}, errors.New("invite grant verifier is not configured")
	}

	var parsed inviteGrantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.PublicKey, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return GrantClaims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return GrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeInviteGrantInvalid,
			"invite grant issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return GrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeInviteGrantInvalid,
			"invite grant audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}
	if parsed.ID == "" {
		return GrantClaims{}, apperrors.New(apperrors.CodeInviteGrantInvalid, "invite grant jti is required")
	}
	if parsed.ExpiresAt == nil {
		return GrantClaims{}, apperrors.New(apperrors.CodeInviteGrantInvalid, "invite grant exp is required")
	}
	if strings.TrimSpace(parsed.FamilyID) == "" || strings.TrimSpace(parsed.InviteID) == "" {
		return GrantClaims{}, apperrors.New(apperrors.CodeInviteGrantInvalid, "invite grant identity is incomplete")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return GrantClaims{}, apperrors.New(apperrors.CodeInviteGrantExpired, "invite grant is expired")
	}

	claims := GrantClaims{
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		ExpiresAt: exp,
		JWTID:     parsed.ID,
		FamilyID:  parsed.FamilyID,
		InviteID:  parsed.InviteID,
		Email:     parsed.Email,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeInviteGrantInvalid, "invite grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeInviteGrantInvalid, "invite grant alg is invalid")
	}
	return apperrors.New(apperrors.CodeInviteGrantInvalid, "invite grant is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}

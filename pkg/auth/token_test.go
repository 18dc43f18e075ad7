package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scanningworld/scanningworld-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "unit-test-secret",
		Issuer:                 "scanningworld-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
		ResetTokenTTLMinutes:   30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	payload := TokenPayload{UserID: uuid.New(), RegionID: uuid.New()}

	signed, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseTokenOfKind(cfg, signed, TokenKindAccess)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != payload.UserID {
		t.Fatalf("expected user id %s, got %s", payload.UserID, claims.UserID)
	}
	if claims.RegionID != payload.RegionID {
		t.Fatalf("expected region id %s, got %s", payload.RegionID, claims.RegionID)
	}
	if claims.ID == "" {
		t.Fatal("expected a generated jti")
	}
}

func TestParseRejectsWrongKind(t *testing.T) {
	cfg := testJWTConfig()
	refresh, err := MintRefreshToken(cfg, time.Now(), TokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint refresh token: %v", err)
	}

	if _, err := ParseTokenOfKind(cfg, refresh, TokenKindAccess); err == nil {
		t.Fatal("expected refresh token to be rejected as access token")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), TokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := ParseToken(cfg, signed); err == nil {
		t.Fatal("expected expired token to fail validation")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now(), TokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	other := cfg
	other.Secret = "a-different-secret"
	if _, err := ParseToken(other, signed); err == nil {
		t.Fatal("expected signature validation to fail")
	}
}

func TestMintValidation(t *testing.T) {
	cfg := testJWTConfig()
	if _, err := MintAccessToken(cfg, time.Now(), TokenPayload{}); err == nil {
		t.Fatal("expected error for missing user id")
	}

	cfg.ExpirationMinutes = 0
	if _, err := MintAccessToken(cfg, time.Now(), TokenPayload{UserID: uuid.New()}); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}

package session

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigFromEnv_MissingSecret(t *testing.T) {
	t.Setenv("MYAUTH_JWT_SECRET", "")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig on missing secret, got %v", err)
	}
}

func TestLoadConfigFromEnv_ShortSecret(t *testing.T) {
	t.Setenv("MYAUTH_JWT_SECRET", "too-short")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig on short secret, got %v", err)
	}
}

func TestLoadConfigFromEnv_InvalidTTL(t *testing.T) {
	cases := []struct {
		key, val string
	}{
		{"MYAUTH_JWT_ACCESS_TOKEN_EXPIRATION_MS", "-5"},
		{"MYAUTH_JWT_ACCESS_TOKEN_EXPIRATION_MS", "15m"},
		{"MYAUTH_JWT_REFRESH_TOKEN_EXPIRATION_MS", "0"},
		{"MYAUTH_JWT_REFRESH_TOKEN_EXPIRATION_MS", "1000"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.val, func(t *testing.T) {
			t.Setenv("MYAUTH_JWT_SECRET", strings.Repeat("k", 32))
			t.Setenv(tc.key, tc.val)
			if _, err := LoadConfigFromEnv(); err != ErrConfig {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfigFromEnv_Valid(t *testing.T) {
	t.Setenv("MYAUTH_JWT_SECRET", strings.Repeat("k", 40))
	t.Setenv("MYAUTH_JWT_ISSUER", "myauth-test")
	t.Setenv("MYAUTH_JWT_ACCESS_TOKEN_EXPIRATION_MS", "600000")
	t.Setenv("MYAUTH_JWT_REFRESH_TOKEN_EXPIRATION_MS", "172800000")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Issuer != "myauth-test" {
		t.Fatalf("issuer mismatch: %q", cfg.Issuer)
	}
	if cfg.AccessTokenTTL != 10*time.Minute {
		t.Fatalf("access ttl mismatch: %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 48*time.Hour {
		t.Fatalf("refresh ttl mismatch: %v", cfg.RefreshTokenTTL)
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("MYAUTH_JWT_SECRET", strings.Repeat("k", 32))
	t.Setenv("MYAUTH_JWT_ACCESS_TOKEN_EXPIRATION_MS", "")
	t.Setenv("MYAUTH_JWT_REFRESH_TOKEN_EXPIRATION_MS", "")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AccessTokenTTL != 15*time.Minute || cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

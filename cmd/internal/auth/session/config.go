package session

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// MinSecretBytes is the shortest HS256 signing secret accepted.
const MinSecretBytes = 32

// Config defines runtime configuration for token issuance.
// It is built once at startup and never mutated.
type Config struct {
	// Issuer is set as "iss" and checked on verify when non-empty.
	Issuer string

	// Secret is the HS256 signing key.
	Secret []byte

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// DefaultConfig returns defaults without a secret.
func DefaultConfig() Config {
	return Config{
		Issuer:          "myauth",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

// Validate reports ErrConfig when cfg cannot sign or expire tokens.
func (c Config) Validate() error {
	if len(c.Secret) < MinSecretBytes {
		return ErrConfig
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return ErrConfig
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return ErrConfig
	}
	return nil
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - MYAUTH_JWT_SECRET (at least 32 bytes)
//
// Optional (TTLs in milliseconds):
//   - MYAUTH_JWT_ISSUER
//   - MYAUTH_JWT_ACCESS_TOKEN_EXPIRATION_MS
//   - MYAUTH_JWT_REFRESH_TOKEN_EXPIRATION_MS
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("MYAUTH_JWT_ISSUER"); ok {
		cfg.Issuer = strings.TrimSpace(v)
	}

	if v := os.Getenv("MYAUTH_JWT_ACCESS_TOKEN_EXPIRATION_MS"); v != "" {
		d, err := parseMillis(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("MYAUTH_JWT_REFRESH_TOKEN_EXPIRATION_MS"); v != "" {
		d, err := parseMillis(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	cfg.Secret = []byte(strings.TrimSpace(os.Getenv("MYAUTH_JWT_SECRET")))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseMillis(s string) (time.Duration, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrConfig
	}
	return time.Duration(n) * time.Millisecond, nil
}

package app

import (
	"errors"

	authapi "myauth/cmd/internal/auth/api"
	"myauth/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy.
//
// Production requires Secure refresh cookies. MYAUTH_REQUIRE_TOKEN_HMAC=true requires a usable HMAC key.
func ValidateSecurityConfig(cfg Config, auth authapi.Config) error {
	if cfg.Production() && !auth.CookieSecure {
		return errors.New("security policy: MYAUTH_ENV=production requires MYAUTH_COOKIE_SECURE=true")
	}

	if !cfg.RequireTokenHMAC {
		return nil
	}

	// The key is used as raw bytes, so length is measured in bytes.
	if _, err := token.HMACKeyFromEnv(token.MinHMACKeyBytes); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: MYAUTH_REQUIRE_TOKEN_HMAC=true but MYAUTH_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: MYAUTH_REQUIRE_TOKEN_HMAC=true but MYAUTH_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}
	return nil
}

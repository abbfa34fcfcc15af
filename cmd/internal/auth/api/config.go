package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// RefreshCookieName is the cookie carrying the refresh token for web clients.
const RefreshCookieName = "refreshToken"

// Config controls auth API transport behavior.
type Config struct {
	MaxBodyBytes int64
	TrustProxy   bool

	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	// MobileSignatures extends the User-Agent substrings that classify a client as mobile.
	MobileSignatures []string

	Throttle ThrottleConfig
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:   1 << 20, // 1 MiB
		CookieName:     RefreshCookieName,
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
		Throttle:       DefaultThrottleConfig(),
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
// Secure cookies default to on when MYAUTH_ENV=production.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	production := strings.EqualFold(strings.TrimSpace(os.Getenv("MYAUTH_ENV")), "production")

	cfg.MaxBodyBytes = envInt64("MYAUTH_AUTH_MAX_BODY_BYTES", cfg.MaxBodyBytes)
	cfg.TrustProxy = envBool("MYAUTH_AUTH_TRUST_PROXY", false)
	cfg.CookieSecure = envBool("MYAUTH_COOKIE_SECURE", production)
	cfg.CookieDomain = strings.TrimSpace(os.Getenv("MYAUTH_COOKIE_DOMAIN"))
	cfg.CookieSameSite = parseSameSite(os.Getenv("MYAUTH_COOKIE_SAMESITE"))

	// Browsers drop SameSite=None cookies without Secure.
	if cfg.CookieSameSite == http.SameSiteNoneMode {
		cfg.CookieSecure = true
	}

	for _, s := range strings.Split(os.Getenv("MYAUTH_MOBILE_UA_SIGNATURES"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.MobileSignatures = append(cfg.MobileSignatures, s)
		}
	}

	cfg.Throttle = loadThrottleFromEnv(cfg.Throttle)

	return cfg
}

// loadThrottleFromEnv overrides throttle limits. A zero limit disables that check.
func loadThrottleFromEnv(tc ThrottleConfig) ThrottleConfig {
	tc.AddrMax = envInt("MYAUTH_AUTH_LOGIN_IP_MAX", tc.AddrMax)
	tc.AddrWindow = envDuration("MYAUTH_AUTH_LOGIN_IP_WINDOW", tc.AddrWindow)
	tc.AccountWindow = envDuration("MYAUTH_AUTH_LOGIN_ACCOUNT_WINDOW", tc.AccountWindow)

	names := []string{"SEVERE", "LONG", "SHORT"}
	tiers := make([]lockoutTier, 0, len(tc.Tiers))
	for i, t := range tc.Tiers {
		if i < len(names) {
			t.Threshold = envInt("MYAUTH_AUTH_LOCKOUT_"+names[i]+"_THRESHOLD", t.Threshold)
			t.Duration = envDuration("MYAUTH_AUTH_LOCKOUT_"+names[i]+"_DURATION", t.Duration)
		}
		tiers = append(tiers, t)
	}
	tc.Tiers = tiers
	return tc
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteLaxMode
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

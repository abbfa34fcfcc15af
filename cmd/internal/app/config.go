package app

import "time"

// Backend names accepted by MYAUTH_STORE and MYAUTH_REFRESH_STORE.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string
	Env      string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	AutoMigrate bool

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool

	// If true, MYAUTH_TOKEN_HMAC_KEY must be set (>= 32 bytes) and refresh-token hashing is HMAC-based.
	RequireTokenHMAC bool

	// Store selects the identity store; RefreshStore selects the refresh record store.
	// Empty values are resolved by resolveBackends.
	Store        string
	RefreshStore string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	GatePolicy string
}

// Production reports whether MYAUTH_ENV is "production".
func (c Config) Production() bool { return c.Env == "production" }

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("MYAUTH_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("MYAUTH_LOG_LEVEL", "info"),
		Env:      EnvString("MYAUTH_ENV", "development"),

		ReadHeaderTimeout: EnvDuration("MYAUTH_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("MYAUTH_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("MYAUTH_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("MYAUTH_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("MYAUTH_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("MYAUTH_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("MYAUTH_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("MYAUTH_DB_MIN_CONNS", 0),
		AutoMigrate: EnvBool("MYAUTH_AUTO_MIGRATE", true),

		ReadinessRequireDB: EnvBool("MYAUTH_READINESS_REQUIRE_DB", false),
		RequireTokenHMAC:   EnvBool("MYAUTH_REQUIRE_TOKEN_HMAC", false),

		Store:        EnvString("MYAUTH_STORE", ""),
		RefreshStore: EnvString("MYAUTH_REFRESH_STORE", ""),

		RedisAddr:     EnvString("MYAUTH_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: EnvString("MYAUTH_REDIS_PASSWORD", ""),
		RedisDB:       EnvInt("MYAUTH_REDIS_DB", 0),
		RedisPrefix:   EnvString("MYAUTH_REDIS_PREFIX", ""),

		GatePolicy: EnvString("MYAUTH_GATE_FAILURE_POLICY", "fail-open"),
	}
}

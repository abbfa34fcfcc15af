package media

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Backend names an image storage implementation.
type Backend string

const (
	BackendLocal Backend = "local"
	BackendS3    Backend = "s3"
)

// DefaultMaxBytes is the largest accepted image.
const DefaultMaxBytes = 10 << 20

// Config selects and configures image storage.
type Config struct {
	Backend  Backend
	MaxBytes int64

	// Local backend.
	Dir     string
	BaseURL string

	// S3 backend. Endpoint is set for S3-compatible servers such as MinIO.
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

// DefaultConfig returns a local-disk config suitable for development.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendLocal,
		MaxBytes: DefaultMaxBytes,
		Dir:      "./uploads",
		BaseURL:  "http://localhost:8080/uploads",
		S3Region: "us-east-1",
	}
}

// LoadConfigFromEnv reads MYAUTH_MEDIA_* and MYAUTH_S3_* variables.
// An unknown backend is an error.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("MYAUTH_MEDIA_BACKEND"))); v != "" {
		cfg.Backend = Backend(v)
	}
	if v := strings.TrimSpace(os.Getenv("MYAUTH_MEDIA_DIR")); v != "" {
		cfg.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("MYAUTH_MEDIA_BASE_URL")); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MYAUTH_MEDIA_MAX_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("media: invalid MYAUTH_MEDIA_MAX_BYTES %q", v)
		}
		cfg.MaxBytes = n
	}

	cfg.S3Bucket = strings.TrimSpace(os.Getenv("MYAUTH_S3_BUCKET"))
	if v := strings.TrimSpace(os.Getenv("MYAUTH_S3_REGION")); v != "" {
		cfg.S3Region = v
	}
	cfg.S3Endpoint = strings.TrimSpace(os.Getenv("MYAUTH_S3_ENDPOINT"))
	cfg.S3AccessKey = strings.TrimSpace(os.Getenv("MYAUTH_S3_ACCESS_KEY"))
	cfg.S3SecretKey = os.Getenv("MYAUTH_S3_SECRET_KEY")
	cfg.S3PublicURL = strings.TrimSpace(os.Getenv("MYAUTH_S3_PUBLIC_URL"))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks backend-specific requirements.
func (c Config) Validate() error {
	if c.MaxBytes <= 0 {
		return fmt.Errorf("media: max bytes must be > 0")
	}
	switch c.Backend {
	case BackendLocal:
		if c.Dir == "" {
			return fmt.Errorf("media: local backend requires a directory")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("media: s3 backend requires MYAUTH_S3_BUCKET")
		}
		if c.S3Region == "" {
			return fmt.Errorf("media: s3 backend requires a region")
		}
	default:
		return fmt.Errorf("media: unknown backend %q", c.Backend)
	}
	return nil
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/phuslu/log"
)

// Profile selects which field set and tracking behavior is active; the two
// deployment variants share one core.
const (
	ProfileStandard = "standard"
	ProfileSite     = "site"
)

type Config struct {
	Port        string
	DatabaseDSN string
	Env         string

	// Profile is "standard" or "site".
	Profile string

	// EnforceDateOrder rejects leases whose end date precedes the start date.
	// Off by default to stay compatible with existing records.
	EnforceDateOrder bool

	// SweepInterval is how often stored expiry classifications are refreshed.
	// Zero disables the background sweep.
	SweepInterval time.Duration

	// Receipt store settings. Store is "local" or "s3".
	ReceiptStore string
	ReceiptDir   string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	S3Region     string
	S3Bucket     string
	S3UseSSL     bool
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by caller) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", "file:leases.db?cache=shared")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.Profile = getEnv("LEASE_PROFILE", ProfileStandard)
	if cfg.Profile != ProfileStandard && cfg.Profile != ProfileSite {
		log.Warn().Str("profile", cfg.Profile).Msg("unknown LEASE_PROFILE, falling back to standard")
		cfg.Profile = ProfileStandard
	}
	cfg.EnforceDateOrder = ParseBool("LEASE_ENFORCE_DATE_ORDER", false)
	cfg.SweepInterval = parseDuration("EXPIRY_SWEEP_INTERVAL", 24*time.Hour)

	cfg.ReceiptStore = getEnv("RECEIPT_STORE", "local")
	cfg.ReceiptDir = getEnv("RECEIPT_DIR", "receipts")
	cfg.S3Endpoint = getEnv("AWS_ENDPOINT", "localhost:9000")
	cfg.S3AccessKey = getEnv("AWS_ACCESS_KEY_ID", "minioadmin")
	cfg.S3SecretKey = getEnv("AWS_SECRET_ACCESS_KEY", "minioadmin")
	cfg.S3Region = getEnv("AWS_DEFAULT_REGION", "us-east-1")
	cfg.S3Bucket = getEnv("AWS_BUCKET", "receipts")
	cfg.S3UseSSL = ParseBool("AWS_USE_SSL", false)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseBool reads an env var as bool with default.
func ParseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Warn().Str("key", key).Str("value", v).Msg("invalid boolean env var")
			return def
		}
		return b
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Warn().Str("key", key).Str("value", v).Msg("invalid duration env var")
			return def
		}
		return d
	}
	return def
}

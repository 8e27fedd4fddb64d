// Package config loads process-wide configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Storage backends supported for token, event, and directory records.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Server captures the full service configuration. The HMAC signing secret is
// required: the service must refuse to start without it rather than failing
// per request.
type Server struct {
	Addr        string
	Environment string

	// SigningSecret is the HMAC-SHA256 key for credential envelopes.
	SigningSecret string
	// TokenMaxAge bounds the accepted age of a credential payload.
	TokenMaxAge time.Duration

	// OperatorSigningKey signs short-lived operator JWTs for the
	// issuance/revocation/schema-admin endpoints.
	OperatorSigningKey string
	OperatorTokenTTL   time.Duration

	StorageBackend string
	DatabaseURL    string
	StorageTimeout time.Duration
	// AutoMigrate applies the embedded schema at startup. Intended for
	// dev and demo databases, not managed production schemas.
	AutoMigrate bool

	RedisAddr     string
	RedisPassword string

	KafkaBrokers   string
	KafkaFeedTopic string

	// ScanRateLimit caps verifications per scanner key per ScanRateWindow.
	// Zero disables throttling.
	ScanRateLimit  int
	ScanRateWindow time.Duration

	SeedDemoData bool
}

// Defaults that hold unless overridden by the environment.
const (
	defaultAddr             = ":8080"
	defaultTokenMaxAge      = 24 * time.Hour
	defaultStorageTimeout   = 5 * time.Second
	defaultOperatorTokenTTL = 15 * time.Minute
	defaultScanRateLimit    = 120
	defaultScanRateWindow   = time.Minute
)

// Load builds a Server config from environment variables. It returns an error
// when required configuration is missing so main can fail fast at startup.
func Load() (Server, error) {
	secret := os.Getenv("GATEPASS_SIGNING_SECRET")
	if secret == "" {
		return Server{}, fmt.Errorf("GATEPASS_SIGNING_SECRET is required")
	}

	cfg := Server{
		Addr:               envOr("GATEPASS_ADDR", defaultAddr),
		Environment:        envOr("GATEPASS_ENV", "dev"),
		SigningSecret:      secret,
		TokenMaxAge:        envDuration("GATEPASS_TOKEN_MAX_AGE", defaultTokenMaxAge),
		OperatorSigningKey: envOr("GATEPASS_OPERATOR_KEY", "dev-operator-key-change-in-production"),
		OperatorTokenTTL:   envDuration("GATEPASS_OPERATOR_TOKEN_TTL", defaultOperatorTokenTTL),
		StorageBackend:     envOr("GATEPASS_STORAGE", BackendMemory),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StorageTimeout:     envDuration("GATEPASS_STORAGE_TIMEOUT", defaultStorageTimeout),
		AutoMigrate:        os.Getenv("GATEPASS_AUTO_MIGRATE") == "true",
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:       os.Getenv("KAFKA_BROKERS"),
		KafkaFeedTopic:     envOr("GATEPASS_FEED_TOPIC", "gatepass.access-events"),
		ScanRateLimit:      envInt("GATEPASS_SCAN_RATE_LIMIT", defaultScanRateLimit),
		ScanRateWindow:     envDuration("GATEPASS_SCAN_RATE_WINDOW", defaultScanRateWindow),
		SeedDemoData:       os.Getenv("GATEPASS_SEED_DEMO") == "true",
	}

	if cfg.StorageBackend != BackendMemory && cfg.StorageBackend != BackendPostgres {
		return Server{}, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if cfg.StorageBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return Server{}, fmt.Errorf("DATABASE_URL is required for postgres storage")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

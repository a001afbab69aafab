package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer       string // Required: issuer claim for tokens
	RootTenantID string // Tenant whose administrators act across all tenants (default: root)

	SigningKeyPath       string        // Optional: path to Ed25519 PKCS8 PEM; empty means ephemeral
	SigningKeyID         string        // Optional: key id published in token headers (default: iam-1)
	DatabaseFile         string        // Optional: path to SQLite database file (default: ./iam.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	PortalTokenTTL       time.Duration // Access token lifetime (default: 15m)
	ResetTokenTTL        time.Duration // Reset mail token lifetime (default: 30m)
	StateTTL             time.Duration // Flow state lifetime (default: 15m)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               os.Getenv("IAM_ISSUER"),
		RootTenantID:         getEnvOrDefault("IAM_ROOT_TENANT_ID", "root"),
		SigningKeyPath:       os.Getenv("IAM_SIGNING_KEY_PATH"),
		SigningKeyID:         getEnvOrDefault("IAM_SIGNING_KEY_ID", "iam-1"),
		DatabaseFile:         getEnvOrDefault("IAM_DATABASE_FILE", "iam.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		PortalTokenTTL:       getEnvDurationOrDefault("IAM_PORTAL_TOKEN_TTL", 15*time.Minute),
		ResetTokenTTL:        getEnvDurationOrDefault("IAM_RESET_TOKEN_TTL", 30*time.Minute),
		StateTTL:             getEnvDurationOrDefault("IAM_STATE_TTL", 15*time.Minute),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if cfg.Issuer == "" {
		cfg.Issuer = "veridian-iam"
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values are read as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

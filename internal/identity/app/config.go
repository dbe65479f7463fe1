package app

import (
	"os"
	"time"
)

type Config struct {
	DatabaseDriver string // Optional: "sqlite" or "postgres" (default: sqlite)
	DatabaseDSN    string // Optional: sqlite path or postgres DSN (default: ./identity.db)

	SigningKeyFile    string        // Optional: path to the token signing key (default: ./signing.key)
	TokenKeyFile      string        // Optional: path to the token encryption key (default: ./token.key)
	SecretKeyFile     string        // Optional: path to the application-secret encryption key (default: ./secret.key)
	CodeTTL           time.Duration // Optional: authorization code lifetime (default: 10m)
	MetricsListenAddr string        // Optional: Prometheus scrape listener, empty disables it

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		DatabaseDriver: getEnvOrDefault("IDENTITY_DB_DRIVER", "sqlite"),
		DatabaseDSN:    getEnvOrDefault("IDENTITY_DB_DSN", "identity.db"),

		SigningKeyFile:    getEnvOrDefault("IDENTITY_SIGNING_KEY_FILE", "signing.key"),
		TokenKeyFile:      getEnvOrDefault("IDENTITY_TOKEN_KEY_FILE", "token.key"),
		SecretKeyFile:     getEnvOrDefault("IDENTITY_SECRET_KEY_FILE", "secret.key"),
		CodeTTL:           getEnvDurationOrDefault("IDENTITY_CODE_TTL", 10*time.Minute),
		MetricsListenAddr: os.Getenv("IDENTITY_METRICS_ADDR"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

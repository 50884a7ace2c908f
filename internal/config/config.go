package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

const defaultSyncIntervalSeconds = 5

// Config holds application configuration loaded from environment variables
type Config struct {
	DatabaseURL string
	RedisURL    string
	Env         string
	Port        string

	// Job runner
	RunnerMode string // "dev" or "cloud"

	// Logging
	LogLevel  string
	LogFormat string

	// Live sync
	SyncIntervalSeconds int

	// Periodic reports
	ReportTimezone      string
	ReportWebhookURL    string
	ReportWebhookSecret string
	ReportWebhookStub   bool
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		Env:         getEnvWithDefault("ENV", "development"),
		Port:        getEnvWithDefault("PORT", "8080"),

		RunnerMode: getEnvWithDefault("RUNNER_MODE", "dev"),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		SyncIntervalSeconds: getEnvIntWithDefault("SYNC_INTERVAL_SECONDS", defaultSyncIntervalSeconds),

		ReportTimezone:      getEnvWithDefault("REPORT_TIMEZONE", "UTC"),
		ReportWebhookURL:    os.Getenv("REPORT_WEBHOOK_URL"),
		ReportWebhookSecret: os.Getenv("REPORT_WEBHOOK_SECRET"),
		ReportWebhookStub:   getEnvWithDefault("REPORT_WEBHOOK_STUB", "false") == "true",
	}

	if cfg.ReportWebhookURL == "" && !cfg.ReportWebhookStub {
		cfg.ReportWebhookStub = true
		log.Println("WARNING: REPORT_WEBHOOK_URL not set, falling back to stub report generation")
	}

	return cfg
}

// SyncInterval returns the live-sync poll interval from SYNC_INTERVAL_SECONDS.
// Standalone for the watch client, which needs the interval without loading
// the full server configuration.
func SyncInterval() time.Duration {
	return time.Duration(getEnvIntWithDefault("SYNC_INTERVAL_SECONDS", defaultSyncIntervalSeconds)) * time.Second
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("WARNING: invalid %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

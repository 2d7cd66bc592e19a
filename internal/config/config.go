// Package config loads server configuration from the environment,
// with a .env file honored in development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all server settings.
type Config struct {
	ServerAddress string
	DBPath        string
	SessionDBPath string

	JWTSecret  string
	SessionTTL time.Duration

	// EmailDomain is the institutional domain registrations must use,
	// e.g. "campus.edu". Empty disables the check.
	EmailDomain string

	// SweepToken gates the scheduled task endpoint.
	SweepToken string

	// Timezone anchors the weekly reset schedule.
	Timezone *time.Location

	SecureCookies  bool
	TracingEnabled bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("config: .env file loaded")
	}

	cfg := &Config{
		ServerAddress:  getEnv("SERVER_ADDRESS", ":8080"),
		DBPath:         getEnv("FORUM_DB_PATH", "campusforum.db"),
		SessionDBPath:  getEnv("SESSION_DB_PATH", "sessions.db"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		SessionTTL:     24 * time.Hour,
		EmailDomain:    getEnv("EMAIL_DOMAIN", ""),
		SweepToken:     getEnv("SWEEP_TOKEN", ""),
		SecureCookies:  getEnv("SECURE_COOKIES", "") == "true",
		TracingEnabled: getEnv("TRACING_ENABLED", "") == "true",
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.SweepToken == "" {
		return nil, fmt.Errorf("SWEEP_TOKEN is required")
	}

	if ttl := getEnv("SESSION_TTL", ""); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}

	tz := getEnv("FORUM_TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid FORUM_TIMEZONE %q: %w", tz, err)
	}
	cfg.Timezone = loc

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

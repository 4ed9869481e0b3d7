// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	CORSOrigins []string

	// RedisURL points the view cache at Redis. Empty means an in-process cache.
	RedisURL string

	// CacheTTL bounds how long a cached view lives without invalidation.
	CacheTTL time.Duration

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64

	// ProvisionRollback deletes partially written tours when provisioning fails.
	ProvisionRollback bool

	// TourDateTitleFormat names per-date jobs; it must contain exactly one %s.
	TourDateTitleFormat string

	// TourTimezone is the zone tour dates are interpreted in.
	TourTimezone *time.Location

	// ProvisionClaimWait bounds how long a submission waits on another one
	// still running under the same idempotency key before answering 409.
	ProvisionClaimWait time.Duration
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the working directory (or the file named by ENV_FILE) is
// loaded first; variables already set in the environment win.
func Load() (Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CORSOrigins:         splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RedisURL:            os.Getenv("REDIS_URL"),
		TourDateTitleFormat: getEnv("TOUR_DATE_TITLE_FORMAT", "%s (Tour Date)"),
	}

	var problems []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		problems = append(problems, "required environment variables not set: DATABASE_URL")
	}

	ttl, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil || ttl < 0 {
		problems = append(problems, "CACHE_TTL must be a non-negative duration")
	}
	cfg.CacheTTL = ttl

	maxBody, err := strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil || maxBody <= 0 {
		problems = append(problems, "MAX_BODY_BYTES must be a positive integer")
	}
	cfg.MaxBodyBytes = maxBody

	rollback, err := strconv.ParseBool(getEnv("PROVISION_ROLLBACK", "true"))
	if err != nil {
		problems = append(problems, "PROVISION_ROLLBACK must be a boolean")
	}
	cfg.ProvisionRollback = rollback

	claimWait, err := time.ParseDuration(getEnv("PROVISION_CLAIM_WAIT", "5s"))
	if err != nil || claimWait <= 0 {
		problems = append(problems, "PROVISION_CLAIM_WAIT must be a positive duration")
	}
	cfg.ProvisionClaimWait = claimWait

	if strings.Count(cfg.TourDateTitleFormat, "%") != 1 || !strings.Contains(cfg.TourDateTitleFormat, "%s") {
		problems = append(problems, "TOUR_DATE_TITLE_FORMAT must contain exactly one %s")
	}

	loc, err := time.LoadLocation(getEnv("TOUR_TIMEZONE", "UTC"))
	if err != nil {
		problems = append(problems, fmt.Sprintf("TOUR_TIMEZONE: %v", err))
	}
	cfg.TourTimezone = loc

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// loadDotEnv copies the variables in path into the environment if the file
// exists. A variable exported but left empty counts as unset, matching getEnv.
func loadDotEnv(path string) error {
	vals, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	for k, v := range vals {
		if os.Getenv(k) != "" {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

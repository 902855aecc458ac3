// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// AutoMigrate applies pending migrations at startup. Defaults to false.
	AutoMigrate bool

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// JWTSecret signs bearer tokens. Required.
	JWTSecret string

	// TokenTTL is the lifetime of a bearer token. Defaults to 24h.
	TokenTTL time.Duration

	// RecaptchaSecretKey verifies /login reCAPTCHA tokens. Optional: when
	// empty, /login answers 500 "secret key not configured".
	RecaptchaSecretKey string

	// RecaptchaVerifyURL overrides Google's siteverify endpoint.
	RecaptchaVerifyURL string

	// MapsAPIKey authorizes reverse geocoding. Optional: without it, trips
	// are saved with "Address lookup unavailable".
	MapsAPIKey string

	// GeocodeURL overrides the reverse geocoding endpoint.
	GeocodeURL string

	// GeocodeTimeout bounds a single address lookup. Defaults to 5s.
	GeocodeTimeout time.Duration

	// ReimbursementRate is the amount paid per mile. Defaults to 0.45.
	ReimbursementRate float64

	// CurrencySymbol prefixes amounts in reports. Defaults to "£".
	CurrencySymbol string

	// KafkaBrokers enables trip.completed events when non-empty.
	KafkaBrokers []string

	// KafkaTopic is the topic trip events are written to.
	// Defaults to "mileage.trips".
	KafkaTopic string
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or the
// first variable whose value cannot be parsed.
func Load() (Config, error) {
	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSOrigins:        splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RecaptchaSecretKey: os.Getenv("RECAPTCHA_SECRET_KEY"),
		RecaptchaVerifyURL: os.Getenv("RECAPTCHA_VERIFY_URL"),
		MapsAPIKey:         os.Getenv("MAPS_API_KEY"),
		GeocodeURL:         os.Getenv("GEOCODE_URL"),
		CurrencySymbol:     getEnv("CURRENCY_SYMBOL", "£"),
		KafkaBrokers:       splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "mileage.trips"),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.AutoMigrate, err = parseEnv("AUTO_MIGRATE", false, strconv.ParseBool); err != nil {
		return Config{}, err
	}
	if cfg.MaxBodyBytes, err = parseEnv("MAX_BODY_BYTES", 1<<20, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	}); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = parseEnv("TOKEN_TTL", 24*time.Hour, time.ParseDuration); err != nil {
		return Config{}, err
	}
	if cfg.GeocodeTimeout, err = parseEnv("GEOCODE_TIMEOUT", 5*time.Second, time.ParseDuration); err != nil {
		return Config{}, err
	}
	if cfg.ReimbursementRate, err = parseEnv("REIMBURSEMENT_RATE", 0.45, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}); err != nil {
		return Config{}, err
	}
	if cfg.ReimbursementRate < 0 {
		return Config{}, fmt.Errorf("REIMBURSEMENT_RATE must not be negative")
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseEnv parses the environment variable named by key with parse, or
// returns fallback if the variable is not set or is empty.
func parseEnv[T any](key string, fallback T, parse func(string) (T, error)) (T, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	out, err := parse(v)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return out, nil
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

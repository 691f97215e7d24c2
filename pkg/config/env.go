// Package config provides helpers for loading configuration from
// environment variables.
//
// Tunables use warn-and-default semantics: an invalid value logs a warning
// and falls back, so an operator typo degrades gracefully instead of taking
// the service down. Values whose absence must stop startup (e.g. API keys)
// are validated by the application config layer, not here.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvString returns the value of an environment variable, or defaultValue
// if it is unset or empty.
func GetEnvString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvInt returns the value of an environment variable parsed as an
// integer. An unparseable value logs a warning and returns defaultValue.
func GetEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", v),
			slog.Int("default", defaultValue))
		return defaultValue
	}
	return n
}

// GetEnvFloat32 returns the value of an environment variable parsed as a
// float32. An unparseable value logs a warning and returns defaultValue.
func GetEnvFloat32(key string, defaultValue float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}

	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		slog.Warn("invalid float value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", v),
			slog.Float64("default", float64(defaultValue)))
		return defaultValue
	}
	return float32(f)
}

// GetEnvBool returns the value of an environment variable parsed as a
// boolean (per strconv.ParseBool). An unparseable value logs a warning and
// returns defaultValue.
func GetEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", v),
			slog.Bool("default", defaultValue))
		return defaultValue
	}
	return b
}

// GetEnvDuration returns the value of an environment variable parsed by
// time.ParseDuration (e.g. "1m", "90s"). An unparseable value logs a
// warning and returns defaultValue.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", v),
			slog.String("default", defaultValue.String()))
		return defaultValue
	}
	return d
}

// GetEnvStringList returns a comma-separated list from an environment
// variable, with each element trimmed and empty elements dropped.
// Returns defaultValue when the variable is unset or yields no elements.
func GetEnvStringList(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}

	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// ValidatePositiveDuration returns an error unless d is greater than zero.
// Used for window, TTL, and interval validation.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

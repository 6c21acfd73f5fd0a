package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the daybook service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	BrainMode     string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	BrainTimeout  time.Duration

	DatabaseURL string

	Timezone           string
	SeriesHorizonDays  int
	DefaultWallClock   string
	DefaultReminderMin int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "daybook"),
		AllowAnyOrigin:   false,
		BrainMode:        envOrDefault("BRAIN_MODE", "auto"),
		OpenAIAPIKey:     envTrimmed("OPENAI_API_KEY"),
		OpenAIBaseURL:    envOrDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:      envOrDefault("OPENAI_MODEL", "gpt-5-nano"),
		DatabaseURL:      envTrimmed("DATABASE_URL"),
		Timezone:         envOrDefault("DAYBOOK_TIMEZONE", "Local"),
		// The horizon and wall-clock defaults are product conventions, not
		// requirements, so both stay tunable.
		SeriesHorizonDays:  365,
		DefaultWallClock:   envOrDefault("DAYBOOK_DEFAULT_TIME", "09:00"),
		DefaultReminderMin: 10,
		ShutdownTimeout:    15 * time.Second,
		BrainTimeout:       20 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.BrainTimeout, err = durationFromEnv("BRAIN_TIMEOUT", cfg.BrainTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SeriesHorizonDays, err = intFromEnv("DAYBOOK_SERIES_HORIZON_DAYS", cfg.SeriesHorizonDays)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultReminderMin, err = intFromEnv("DAYBOOK_DEFAULT_REMINDER_MIN", cfg.DefaultReminderMin)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.BrainTimeout < time.Second {
		return Config{}, fmt.Errorf("BRAIN_TIMEOUT must be at least 1s")
	}
	if cfg.SeriesHorizonDays <= 0 {
		return Config{}, fmt.Errorf("DAYBOOK_SERIES_HORIZON_DAYS must be positive")
	}
	if cfg.DefaultReminderMin < 0 {
		return Config{}, fmt.Errorf("DAYBOOK_DEFAULT_REMINDER_MIN must be >= 0")
	}
	if len(cfg.DefaultWallClock) != 5 || cfg.DefaultWallClock[2] != ':' {
		return Config{}, fmt.Errorf("DAYBOOK_DEFAULT_TIME must be HH:MM")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.BrainMode)) {
	case "auto", "openai", "mock":
	default:
		return Config{}, fmt.Errorf("invalid BRAIN_MODE: %q (expected auto|openai|mock)", cfg.BrainMode)
	}

	return cfg, nil
}

// Location resolves the configured time zone.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("DAYBOOK_TIMEZONE parse error: %w", err)
	}
	return loc, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}

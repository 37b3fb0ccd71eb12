package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	DatabasePath    string
	MigrationsPath  string
	SessionLifetime time.Duration

	// AllowGuestAdmin enables the one-click login as the seeded admin
	// account. Off unless explicitly set.
	AllowGuestAdmin bool

	SweepInterval time.Duration
	ReminderLead  time.Duration

	// Defaults for newly created tournaments
	DefaultRaceTo            int
	DefaultConfirmationHours int
	DefaultMatchExpiryHours  int
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		HTTPAddr:       orDefault(getenv("HTTP_ADDR"), ":8080"),
		DatabasePath:   orDefault(getenv("DATABASE_PATH"), "cue_bracket.db"),
		MigrationsPath: orDefault(getenv("MIGRATIONS_PATH"), "migrations"),
	}

	var err error
	if cfg.SessionLifetime, err = duration(getenv, "SESSION_LIFETIME", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AllowGuestAdmin, err = boolean(getenv, "ALLOW_GUEST_ADMIN"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = duration(getenv, "SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReminderLead, err = duration(getenv, "REMINDER_LEAD", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DefaultRaceTo, err = positiveInt(getenv, "DEFAULT_RACE_TO", 5); err != nil {
		return nil, err
	}
	if cfg.DefaultConfirmationHours, err = positiveInt(getenv, "DEFAULT_CONFIRMATION_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.DefaultMatchExpiryHours, err = positiveInt(getenv, "DEFAULT_MATCH_EXPIRY_HOURS", 72); err != nil {
		return nil, err
	}

	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func duration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func positiveInt(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

func boolean(getenv func(string) string, key string) (bool, error) {
	v := getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

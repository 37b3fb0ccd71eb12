package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "cue_bracket.db", cfg.DatabasePath)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Equal(t, 24*time.Hour, cfg.SessionLifetime)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 5, cfg.DefaultRaceTo)
	assert.Equal(t, 24, cfg.DefaultConfirmationHours)
	assert.Equal(t, 72, cfg.DefaultMatchExpiryHours)
	assert.False(t, cfg.AllowGuestAdmin)
}

func TestOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"HTTP_ADDR":                  "127.0.0.1:9000",
		"SWEEP_INTERVAL":             "30s",
		"REMINDER_LEAD":              "2h",
		"DEFAULT_RACE_TO":            "7",
		"DEFAULT_MATCH_EXPIRY_HOURS": "48",
		"ALLOW_GUEST_ADMIN":          "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 2*time.Hour, cfg.ReminderLead)
	assert.Equal(t, 7, cfg.DefaultRaceTo)
	assert.Equal(t, 48, cfg.DefaultMatchExpiryHours)
	assert.True(t, cfg.AllowGuestAdmin)
}

func TestInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SWEEP_INTERVAL":             "soon",
		"SESSION_LIFETIME":           "-1h",
		"DEFAULT_RACE_TO":            "0",
		"DEFAULT_CONFIRMATION_HOURS": "a day",
		"ALLOW_GUEST_ADMIN":          "sometimes",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := FromEnv(envMap(map[string]string{key: value}))
			assert.ErrorContains(t, err, key)
		})
	}
}

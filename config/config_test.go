package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapEnv map[string]string

func (m mapEnv) Getenv(key string) string { return m[key] }

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv(mapEnv{"SESSION_SECRET": "s"})
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "http://localhost:9000", cfg.PublicURL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, "release", cfg.GinMode)
}

func TestLoadFromEnv_SessionSecretRequired(t *testing.T) {
	_, err := LoadFromEnv(mapEnv{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	cfg, err := LoadFromEnv(mapEnv{
		"SESSION_SECRET": "s",
		"PORT":           "8080",
		"REDIS_URL":      "redis://cache:6379/1",
		"PUBLIC_URL":     "https://wallet.example.com",
		"AUTH_RELAY":     "wss://relay.example.com",
		"COOKIE_SECURE":  "true",
		"GIN_MODE":       "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, "https://wallet.example.com", cfg.PublicURL)
	assert.Equal(t, "wss://relay.example.com", cfg.RelayHint)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "debug", cfg.GinMode)
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	_, err := LoadFromEnv(mapEnv{"SESSION_SECRET": "s", "PORT": "not-a-port"})
	assert.Error(t, err)

	_, err = LoadFromEnv(mapEnv{"SESSION_SECRET": "s", "PORT": "70000"})
	assert.Error(t, err)

	_, err = LoadFromEnv(mapEnv{"SESSION_SECRET": "s", "COOKIE_SECURE": "maybe"})
	assert.Error(t, err)
}

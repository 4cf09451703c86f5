package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the service configuration, loaded from the environment.
type Config struct {
	Port          int
	SessionSecret string
	RedisURL      string
	PublicURL     string
	RelayHint     string
	CookieSecure  bool
	GinMode       string
}

// Env abstracts the environment for tests.
type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return LoadFromEnv(osEnv{})
}

// LoadFromEnv reads the configuration from env. SESSION_SECRET is required
// with no fallback: sessions must never be signed with a guessable default.
func LoadFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:      9000,
		RedisURL:  "redis://localhost:6379/0",
		PublicURL: "http://localhost:9000",
		GinMode:   "release",
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	cfg.SessionSecret = env.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET is required")
	}

	if raw := env.Getenv("REDIS_URL"); raw != "" {
		cfg.RedisURL = raw
	}
	if raw := env.Getenv("PUBLIC_URL"); raw != "" {
		cfg.PublicURL = raw
	}
	cfg.RelayHint = env.Getenv("AUTH_RELAY")

	if raw := env.Getenv("COOKIE_SECURE"); raw != "" {
		secure, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid COOKIE_SECURE")
		}
		cfg.CookieSecure = secure
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	return cfg, nil
}

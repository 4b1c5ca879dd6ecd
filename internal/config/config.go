package config

import (
	"os"
	"time"
)

type Config struct {
	BackendURL      string
	PhotoBaseURL    string
	RedisURL        string
	ScratchDir      string
	FrontendURL     string
	SessionMaxIdle  time.Duration
	JanitorInterval time.Duration
}

func Load() *Config {
	return &Config{
		BackendURL:      getEnv("BACKEND_URL", "http://backend:8000"),
		PhotoBaseURL:    getEnv("PHOTO_BASE_URL", "http://backend:8000"),
		RedisURL:        getEnv("REDIS_URL", "redis://redis:6379"),
		ScratchDir:      getEnv("SCRATCH_DIR", os.TempDir()),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3015"),
		SessionMaxIdle:  getDuration("SESSION_MAX_IDLE", 2*time.Hour),
		JanitorInterval: getDuration("JANITOR_INTERVAL", 10*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

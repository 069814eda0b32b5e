// internal/config/config.go

// Package config reads server settings from the environment. A .env file is
// honored when the binary is started with godotenv autoload.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is everything the server needs at startup.
type Config struct {
	// Port the HTTP server listens on.
	Port string
	// RedisAddr is the shared document store. Empty means the in-memory
	// store, which limits play to a single server instance.
	RedisAddr string
	RedisDB   int
	// RoomTTL bounds how long an untouched room document survives.
	RoomTTL time.Duration
}

// Load pulls the configuration from the environment with sane defaults.
func Load() Config {
	return Config{
		Port:      getEnv("PORT", "8080"),
		RedisAddr: getEnv("REDIS_ADDR", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RoomTTL:   getEnvDuration("ROOM_TTL", 24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

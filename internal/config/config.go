package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Rooms   RoomsConfig
	History HistoryConfig
	Cleanup CleanupConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StaticDir    string
}

type RoomsConfig struct {
	// IdleTTL is how long an empty room stays allocated before eviction.
	IdleTTL time.Duration
	// HandshakeTimeout bounds the wait for the first websocket frame.
	HandshakeTimeout time.Duration
}

type HistoryConfig struct {
	// Retention is the maximum age of a stored chat message.
	Retention time.Duration
}

type CleanupConfig struct {
	SweepInterval time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", ":3000"),
			ReadTimeout:  getDurationOrDefault("READ_TIMEOUT", "15s"),
			WriteTimeout: getDurationOrDefault("WRITE_TIMEOUT", "15s"),
			StaticDir:    getEnvOrDefault("STATIC_DIR", "./public"),
		},
		Rooms: RoomsConfig{
			IdleTTL:          getDurationOrDefault("ROOM_IDLE_TTL", "10m"),
			HandshakeTimeout: getDurationOrDefault("HANDSHAKE_TIMEOUT", "10s"),
		},
		History: HistoryConfig{
			Retention: getDurationOrDefault("MESSAGE_RETENTION", "5m"),
		},
		Cleanup: CleanupConfig{
			SweepInterval: getDurationOrDefault("SWEEP_INTERVAL", "60s"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return duration
}

package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Rooms
	RoomCapacity = 10
	AvatarCount  = 11

	// Destroy countdown announced to the room before teardown. Not
	// cancellable once announced.
	DestroyGrace = 3 * time.Second

	// Log rotation
	LogRetention     = 24 * time.Hour
	RotationInterval = 1 * time.Hour

	// Session tokens
	SessionTokenTTL = 72 * time.Hour
)

// Config holds the process-level settings loaded from the environment.
type Config struct {
	Port      string
	DataDir   string
	RoomsFile string
	JWTSecret string
	LogLevel  string
}

// Load reads a .env file if present, then the environment, falling back to
// development defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getenv("PORT", "3002"),
		DataDir:   getenv("DATA_DIR", "data"),
		RoomsFile: getenv("ROOMS_FILE", "rooms.json"),
		JWTSecret: getenv("JWT_SECRET", "natalk-dev-secret"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

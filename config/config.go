package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Most values have sensible defaults for a single-host deployment.
type Config struct {
	ServerHost    string // Bind address for the HTTP/WebSocket listener
	ServerPort    int
	PublicBaseURL string // Externally reachable base URL; derived from host/port when empty

	LibraryDir string // Directory holding imported audio files
	DataDir    string // Root for local state (settings KV, catalog DB)
	LogPath    string
	LogLevel   string

	// 上游直播事件源
	RelayURL string // WebSocket relay endpoint emitting typed live events
	RoomID   string // Live room / account identifier passed to the relay

	// Playback pipeline
	RepeatCadence time.Duration // Delay between repeat plays within one combo
	RepeatCap     int           // Max audible repetitions per combo
	DedupWindow   time.Duration // Duplicate gift suppression window

	// HTTP rate limiting (all endpoints, per source address)
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Optional stuck-batch watchdog; 0 disables it.
	WatchdogTimeout time.Duration
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	dataDir := getEnv("DATA_DIR", "data")

	return &Config{
		ServerHost:    getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:    getEnvInt("SERVER_PORT", 8655),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		LibraryDir: getEnv("LIBRARY_DIR", filepath.Join(dataDir, "library")),
		DataDir:    dataDir,
		LogPath:    getEnv("LOG_PATH", filepath.Join("logs", "giftfm.log")),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		RelayURL: getEnv("RELAY_URL", ""),
		RoomID:   getEnv("ROOM_ID", ""),

		RepeatCadence: time.Duration(getEnvInt("REPEAT_CADENCE_MS", 250)) * time.Millisecond,
		RepeatCap:     getEnvInt("REPEAT_CAP", 20),
		DedupWindow:   time.Duration(getEnvInt("DEDUP_WINDOW_SECONDS", 5)) * time.Second,

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 10)) * time.Second,

		WatchdogTimeout: time.Duration(getEnvInt("QUEUE_WATCHDOG_SECONDS", 0)) * time.Second,
	}
}

// BaseURL returns the externally reachable base URL for overlay clients.
func (c *Config) BaseURL() string {
	if c.PublicBaseURL != "" {
		return c.PublicBaseURL
	}
	host := c.ServerHost
	if host == "0.0.0.0" || host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.ServerPort)
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port            string
	Environment     string
	ShutdownTimeout time.Duration

	// Ticket store configuration
	TicketsDBPath        string
	TicketsStoreDisabled bool
	DeviceTimeZone       string

	// Calendar configuration
	CalendarDir string

	// Monitoring
	EnableMetrics bool
	LogLevel      string
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory when one exists. Variables already set win over the
// file.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		Port:            getEnv("PORT", "8090"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", "5s"),

		// Ticket store
		TicketsDBPath:        getEnv("TICKETS_DB_PATH", "tickets.db"),
		TicketsStoreDisabled: getEnvAsBool("TICKETS_STORE_DISABLED", false),
		DeviceTimeZone:       getEnv("DEVICE_TIMEZONE", ""),

		// Calendar
		CalendarDir: getEnv("CALENDAR_DIR", "calendar"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// Location is the device time zone that match dates are read in. An empty
// DeviceTimeZone means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.DeviceTimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.DeviceTimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading DEVICE_TIMEZONE %q: %w", c.DeviceTimeZone, err)
	}
	return loc, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

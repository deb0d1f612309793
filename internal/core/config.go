package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config represents the main configuration for feedreader
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Auth     AuthConfig     `json:"auth"`
	Log      LogConfig      `json:"log"`
	Features FeatureConfig  `json:"features"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path string `json:"path"`
}

// AuthConfig holds optional basic-auth credentials handed to the router.
type AuthConfig struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

// Enabled reports whether credentials were configured.
func (a AuthConfig) Enabled() bool {
	return a.Username != "" && a.Password != ""
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// FeatureConfig contains feature-specific configuration
type FeatureConfig struct {
	Reader ReaderConfig `json:"reader"`
}

// ReaderConfig contains feed reader configuration. Intervals are in
// seconds; a zero poll interval leaves the fetch loop switched off.
type ReaderConfig struct {
	Enabled              bool   `json:"enabled"`
	PollIntervalSeconds  int    `json:"poll_interval_seconds"`
	FetchTimeoutSeconds  int    `json:"fetch_timeout_seconds"`
	MaxConcurrentFetches int    `json:"max_concurrent_fetches"`
	HostIntervalMillis   int    `json:"host_interval_ms"`
	UserAgent            string `json:"user_agent"`
	PurgeEnabled         bool   `json:"purge_enabled"`
	PurgeThresholdDays   int    `json:"purge_threshold_days"`
	PurgeIntervalSeconds int    `json:"purge_interval_seconds"`
	PurgeKeepStarred     bool   `json:"purge_keep_starred"`
	RemoveCascade        bool   `json:"remove_cascade"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("FEEDREADER_PORT", 3000),
			Host: getEnvOrDefault("FEEDREADER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Path: getEnvOrDefault("FEEDREADER_DB_PATH", "./feedreader.db"),
		},
		Auth: AuthConfig{
			Username: getEnvOrDefault("FEEDREADER_AUTH_USERNAME", ""),
			Password: getEnvOrDefault("FEEDREADER_AUTH_PASSWORD", ""),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("FEEDREADER_LOG_LEVEL", "info"),
			Format: getEnvOrDefault("FEEDREADER_LOG_FORMAT", "text"),
		},
		Features: FeatureConfig{
			Reader: ReaderConfig{
				Enabled:              getEnvAsBool("FEEDREADER_ENABLE_READER", true),
				PollIntervalSeconds:  getEnvAsInt("FEEDREADER_POLL_INTERVAL_SECONDS", 0),
				FetchTimeoutSeconds:  getEnvAsInt("FEEDREADER_FETCH_TIMEOUT_SECONDS", 30),
				MaxConcurrentFetches: getEnvAsInt("FEEDREADER_MAX_CONCURRENT_FETCHES", 5),
				HostIntervalMillis:   getEnvAsInt("FEEDREADER_HOST_INTERVAL_MS", 1000),
				UserAgent:            getEnvOrDefault("FEEDREADER_USER_AGENT", "feedreader/1.0"),
				PurgeEnabled:         getEnvAsBool("FEEDREADER_PURGE_ENABLED", false),
				PurgeThresholdDays:   getEnvAsInt("FEEDREADER_PURGE_THRESHOLD_DAYS", 0),
				PurgeIntervalSeconds: getEnvAsInt("FEEDREADER_PURGE_INTERVAL_SECONDS", 86400),
				PurgeKeepStarred:     getEnvAsBool("FEEDREADER_PURGE_KEEP_STARRED", false),
				RemoveCascade:        getEnvAsBool("FEEDREADER_REMOVE_CASCADE", false),
			},
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewConfigurationError(fmt.Sprintf("invalid server port: %d", c.Server.Port), nil)
	}

	if c.Database.Path == "" {
		return NewConfigurationError("database path is required", nil)
	}

	if (c.Auth.Username == "") != (c.Auth.Password == "") {
		return NewConfigurationError("auth username and password must be set together", nil)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return NewConfigurationError(fmt.Sprintf("unknown log format: %q", c.Log.Format), nil)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return NewConfigurationError("invalid log level", err)
	}

	return nil
}

// IsFeatureEnabled checks if a feature is enabled
func (c *Config) IsFeatureEnabled(featureName string) bool {
	switch strings.ToLower(featureName) {
	case "reader":
		return c.Features.Reader.Enabled
	default:
		return false
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

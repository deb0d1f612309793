package reader

import (
	"fmt"
	"time"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/models"
)

// Config represents reader feature configuration
type Config struct {
	Enabled              bool
	PollInterval         time.Duration
	FetchTimeout         time.Duration
	MaxConcurrentFetches int
	HostInterval         time.Duration
	UserAgent            string
	PurgeEnabled         bool
	PurgeThresholdDays   int
	PurgeInterval        time.Duration
	PurgeKeepStarred     bool
	RemoveCascade        bool
}

// NewConfig creates reader config from core config
func NewConfig(coreConfig *core.Config) *Config {
	rc := coreConfig.Features.Reader
	return &Config{
		Enabled:              rc.Enabled,
		PollInterval:         time.Duration(rc.PollIntervalSeconds) * time.Second,
		FetchTimeout:         time.Duration(rc.FetchTimeoutSeconds) * time.Second,
		MaxConcurrentFetches: rc.MaxConcurrentFetches,
		HostInterval:         time.Duration(rc.HostIntervalMillis) * time.Millisecond,
		UserAgent:            rc.UserAgent,
		PurgeEnabled:         rc.PurgeEnabled,
		PurgeThresholdDays:   rc.PurgeThresholdDays,
		PurgeInterval:        time.Duration(rc.PurgeIntervalSeconds) * time.Second,
		PurgeKeepStarred:     rc.PurgeKeepStarred,
		RemoveCascade:        rc.RemoveCascade,
	}
}

// Validate validates the reader configuration
func (c *Config) Validate() error {
	if c.PollInterval != 0 && (c.PollInterval < time.Minute || c.PollInterval > 24*time.Hour) {
		return core.NewConfigurationError("poll interval must be 0 or between 60 and 86400 seconds", nil)
	}

	if c.FetchTimeout < time.Second || c.FetchTimeout > 5*time.Minute {
		return core.NewConfigurationError("fetch timeout must be between 1 and 300 seconds", nil)
	}

	if c.MaxConcurrentFetches < 1 || c.MaxConcurrentFetches > 20 {
		return core.NewConfigurationError("max concurrent fetches must be between 1 and 20", nil)
	}

	if c.HostInterval < 0 {
		return core.NewConfigurationError("host interval cannot be negative", nil)
	}

	if c.PurgeThresholdDays < 0 {
		return core.NewConfigurationError(fmt.Sprintf("invalid purge threshold: %d days", c.PurgeThresholdDays), nil)
	}

	if c.PurgeEnabled && c.PurgeInterval <= 0 {
		return core.NewConfigurationError("purge interval must be positive when purging is enabled", nil)
	}

	return nil
}

// FetcherConfig derives the fetcher settings
func (c *Config) FetcherConfig() *models.FetcherConfig {
	return &models.FetcherConfig{
		UserAgent:            c.UserAgent,
		Timeout:              c.FetchTimeout,
		MaxConcurrentFetches: c.MaxConcurrentFetches,
		HostInterval:         c.HostInterval,
	}
}

// PollingEnabled reports whether the periodic fetch loop runs
func (c *Config) PollingEnabled() bool {
	return c.PollInterval > 0
}

// PurgingEnabled reports whether the periodic purge loop runs
func (c *Config) PurgingEnabled() bool {
	return c.PurgeEnabled && c.PurgeThresholdDays > 0
}

// Package common provides shared utilities for StockPit
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for StockPit
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Holdings    HoldingsConfig `toml:"holdings"`
	Provider    ProviderConfig `toml:"provider"`
	Tracker     TrackerConfig  `toml:"tracker"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// HoldingsConfig locates the holdings input file
type HoldingsConfig struct {
	File string `toml:"file"`
}

// ProviderConfig holds market-data provider configuration
type ProviderConfig struct {
	BaseURL      string `toml:"base_url"`
	RateLimit    int    `toml:"rate_limit"` // requests per second to the provider
	Timeout      string `toml:"timeout"`
	LookbackDays int    `toml:"lookback_days"` // calendar days of history per fetch
	BypassProxy  bool   `toml:"bypass_proxy"`  // force direct connections, ignoring proxy env vars
}

// GetTimeout parses and returns the per-request timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// TrackerConfig holds refresh-cycle configuration
type TrackerConfig struct {
	FetchDelay      string  `toml:"fetch_delay"`      // minimum spacing between provider fetches
	FetchTimeout    string  `toml:"fetch_timeout"`    // per-instrument fetch deadline
	RefreshInterval string  `toml:"refresh_interval"` // scheduler period, "0" disables
	WarnMargin      float64 `toml:"warn_margin"`      // distance below which a position is WARNING
}

// GetFetchDelay parses and returns the inter-fetch spacing
func (c *TrackerConfig) GetFetchDelay() time.Duration {
	d, err := time.ParseDuration(c.FetchDelay)
	if err != nil || d < 0 {
		return 200 * time.Millisecond
	}
	return d
}

// GetFetchTimeout parses and returns the per-instrument fetch deadline
func (c *TrackerConfig) GetFetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetRefreshInterval parses and returns the scheduler period. Zero disables
// scheduled refreshes; manual refreshes still work.
func (c *TrackerConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d < 0 {
		return 5 * time.Minute
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Holdings: HoldingsConfig{
			File: "holdings.json",
		},
		Provider: ProviderConfig{
			BaseURL:      "https://push2his.eastmoney.com",
			RateLimit:    5,
			Timeout:      "10s",
			LookbackDays: 10,
			BypassProxy:  true,
		},
		Tracker: TrackerConfig{
			FetchDelay:      "200ms",
			FetchTimeout:    "10s",
			RefreshInterval: "5m",
			WarnMargin:      0.03,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A local .env file, when present, is read before overrides are applied.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKPIT_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("STOCKPIT_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("STOCKPIT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("STOCKPIT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if file := os.Getenv("STOCKPIT_HOLDINGS_FILE"); file != "" {
		config.Holdings.File = file
	}

	if url := os.Getenv("STOCKPIT_PROVIDER_BASE_URL"); url != "" {
		config.Provider.BaseURL = url
	}

	if v := os.Getenv("STOCKPIT_PROVIDER_BYPASS_PROXY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Provider.BypassProxy = b
		}
	}

	if v := os.Getenv("STOCKPIT_REFRESH_INTERVAL"); v != "" {
		config.Tracker.RefreshInterval = v
	}

	if v := os.Getenv("STOCKPIT_FETCH_DELAY"); v != "" {
		config.Tracker.FetchDelay = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Polymarket PolymarketConfig `mapstructure:"polymarket"`
	Kalshi     KalshiConfig     `mapstructure:"kalshi"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PolymarketConfig holds Polymarket Gamma API configuration
type PolymarketConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second
	RateBurst int           `mapstructure:"rate_burst"`
}

// KalshiConfig holds Kalshi trade API configuration. APIKey is required for
// all Kalshi calls; when empty, the Kalshi adapter fails with an auth error
// and aggregation proceeds on the remaining providers.
type KalshiConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	RateBurst int           `mapstructure:"rate_burst"`
}

// AggregatorConfig holds cross-provider listing configuration
type AggregatorConfig struct {
	DefaultLimit    int    `mapstructure:"default_limit"`
	RefreshSchedule string `mapstructure:"refresh_schedule"` // cron spec; empty disables the background refresh
	RefreshLimit    int    `mapstructure:"refresh_limit"`
}

// AlertsConfig holds alert evaluation configuration
type AlertsConfig struct {
	CheckSchedule string `mapstructure:"check_schedule"` // cron spec; empty disables scheduled evaluation
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds the durable store configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override. Dots in config keys map to
	// underscores, so kalshi.api_key binds to MARKETSCOPE_KALSHI_API_KEY.
	v.SetEnvPrefix("MARKETSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Polymarket defaults
	v.SetDefault("polymarket.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("polymarket.timeout", "10s")
	v.SetDefault("polymarket.rate_limit", 10.0)
	v.SetDefault("polymarket.rate_burst", 5)

	// Kalshi defaults. The api_key default registers the key so an
	// environment-only credential survives Unmarshal.
	v.SetDefault("kalshi.base_url", "https://api.elections.kalshi.com/trade-api/v2")
	v.SetDefault("kalshi.api_key", "")
	v.SetDefault("kalshi.timeout", "10s")
	v.SetDefault("kalshi.rate_limit", 10.0)
	v.SetDefault("kalshi.rate_burst", 5)

	// Aggregator defaults
	v.SetDefault("aggregator.default_limit", 20)
	v.SetDefault("aggregator.refresh_schedule", "@every 5m")
	v.SetDefault("aggregator.refresh_limit", 50)

	// Alerts defaults
	v.SetDefault("alerts.check_schedule", "@every 1m")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/markets.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Server config
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	// Validate Polymarket config
	if c.Polymarket.BaseURL == "" {
		return fmt.Errorf("polymarket.base_url is required")
	}
	if c.Polymarket.Timeout <= 0 {
		return fmt.Errorf("polymarket.timeout must be positive")
	}
	if c.Polymarket.RateLimit <= 0 {
		return fmt.Errorf("polymarket.rate_limit must be positive")
	}

	// Validate Kalshi config. The API key itself is optional at startup; the
	// adapter reports the auth error per call instead.
	if c.Kalshi.BaseURL == "" {
		return fmt.Errorf("kalshi.base_url is required")
	}
	if c.Kalshi.Timeout <= 0 {
		return fmt.Errorf("kalshi.timeout must be positive")
	}
	if c.Kalshi.RateLimit <= 0 {
		return fmt.Errorf("kalshi.rate_limit must be positive")
	}

	// Validate Aggregator config
	if c.Aggregator.DefaultLimit < 1 {
		return fmt.Errorf("aggregator.default_limit must be at least 1")
	}
	if c.Aggregator.RefreshLimit < 1 {
		return fmt.Errorf("aggregator.refresh_limit must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

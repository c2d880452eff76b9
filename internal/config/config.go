// Package config loads and validates the daemon configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TelegramConfig holds notification settings.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MinSendGap     time.Duration `mapstructure:"min_send_gap"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// HTTPConfig holds the outbound HTTP client settings shared by every
// fetcher. ScraperURL, when set, is the external fallback proxy tried
// after a blocked direct request.
type HTTPConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	Proxy          string        `mapstructure:"proxy"`
	ScraperURL     string        `mapstructure:"scraper_url"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// WatchConfig holds polling behavior settings.
type WatchConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	OnlyUSDT      bool          `mapstructure:"only_usdt"`
	MaxExtraTimes int           `mapstructure:"max_extra_times"`
	Feeds         []string      `mapstructure:"feeds"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and HORNET_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("HORNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.enabled", true)
	v.SetDefault("telegram.min_send_gap", "1100ms")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("http.timeout", "25s")
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.retry_delay_base", "1s")
	v.SetDefault("http.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")

	v.SetDefault("watch.poll_interval", "30s")
	v.SetDefault("watch.sweep_interval", "10m")
	v.SetDefault("watch.only_usdt", true)
	v.SetDefault("watch.max_extra_times", 3)
	v.SetDefault("watch.feeds", []string{
		"binance:spot", "binance:futures",
		"okx:spot", "okx:futures",
		"gate:spot", "gate:futures",
		"bitget:spot", "bitget:futures",
		"mexc:spot", "mexc:futures",
		"bingx:spot",
	})

	v.SetDefault("storage.db_path", "./data/hornet.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Telegram.MinSendGap < 0 {
		return fmt.Errorf("telegram.min_send_gap must not be negative")
	}

	if c.HTTP.Timeout < time.Second {
		return fmt.Errorf("http.timeout must be at least 1 second")
	}
	if c.HTTP.MaxRetries < 1 {
		return fmt.Errorf("http.max_retries must be at least 1")
	}

	if c.Watch.PollInterval < 5*time.Second {
		return fmt.Errorf("watch.poll_interval must be at least 5 seconds")
	}
	if c.Watch.SweepInterval < time.Minute {
		return fmt.Errorf("watch.sweep_interval must be at least 1 minute")
	}
	if c.Watch.MaxExtraTimes < 0 {
		return fmt.Errorf("watch.max_extra_times must not be negative")
	}
	if len(c.Watch.Feeds) == 0 {
		return fmt.Errorf("watch.feeds must contain at least one feed")
	}
	for _, feed := range c.Watch.Feeds {
		exchange, market, ok := strings.Cut(feed, ":")
		if !ok || exchange == "" {
			return fmt.Errorf("watch.feeds entry %q must have the form exchange:market", feed)
		}
		if market != "spot" && market != "futures" {
			return fmt.Errorf("watch.feeds entry %q has unknown market %q", feed, market)
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

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

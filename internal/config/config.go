// Package config provides configuration management for the analysis engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Engine      EngineConfig     `mapstructure:"engine"`
	MarketData  MarketDataConfig `mapstructure:"marketdata"`
	AI          AIConfig         `mapstructure:"ai"`
	UI          UIConfig         `mapstructure:"ui"`
	Credentials Credentials      `mapstructure:"-"` // Loaded separately
}

// EngineConfig holds pattern-analysis thresholds. Zero values fall back
// to the engine defaults.
type EngineConfig struct {
	Watchlist        []string `mapstructure:"watchlist"`
	Timeframes       []string `mapstructure:"timeframes"`
	MinRiskReward    float64  `mapstructure:"min_risk_reward"`
	QueueExpiryHours int      `mapstructure:"queue_expiry_hours"`
	MaxQueuedSetups  int      `mapstructure:"max_queued_setups"`
}

// MarketDataConfig holds exchange connectivity configuration.
type MarketDataConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	StreamURL    string `mapstructure:"stream_url"`
	CacheTTLSecs int    `mapstructure:"cache_ttl_secs"`
	CandleCount  int    `mapstructure:"candle_count"`
}

// AIConfig holds the alternative plan generator configuration.
type AIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// UIConfig holds output-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/smc-trader"
	}
	return filepath.Join(home, ".config", "smc-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	// Load main config
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("engine.timeframes", []string{"1h", "15m", "5m"})
	v.SetDefault("engine.min_risk_reward", 1.5)
	v.SetDefault("engine.queue_expiry_hours", 6)
	v.SetDefault("engine.max_queued_setups", 10)
	v.SetDefault("marketdata.base_url", "https://api.binance.com")
	v.SetDefault("marketdata.stream_url", "wss://stream.binance.com:9443/ws")
	v.SetDefault("marketdata.cache_ttl_secs", 60)
	v.SetDefault("marketdata.candle_count", 200)
	v.SetDefault("ai.model", "gpt-4o")
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02-Jan-2006")
	v.SetDefault("ui.time_format", "15:04:05")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			if err := createTemplateConfig(configDir, name); err != nil {
				return err
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("SMC_BASE_URL"); v != "" {
		cfg.MarketData.BaseURL = v
	}
	if v := os.Getenv("SMC_STREAM_URL"); v != "" {
		cfg.MarketData.StreamURL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.MinRiskReward < 0 {
		return fmt.Errorf("min_risk_reward must be non-negative")
	}
	if c.Engine.QueueExpiryHours < 0 {
		return fmt.Errorf("queue_expiry_hours must be non-negative")
	}
	if c.Engine.MaxQueuedSetups < 0 {
		return fmt.Errorf("max_queued_setups must be non-negative")
	}
	if len(c.Engine.Timeframes) < 2 {
		return fmt.Errorf("at least two timeframes required (trend + execution)")
	}
	for _, tf := range c.Engine.Timeframes {
		switch tf {
		case "5m", "15m", "1h", "4h", "1d":
		default:
			return fmt.Errorf("invalid timeframe: %s", tf)
		}
	}
	if c.MarketData.CandleCount < 21 {
		return fmt.Errorf("candle_count must be at least 21")
	}
	if c.AI.Enabled && c.Credentials.OpenAI.APIKey == "" {
		return fmt.Errorf("ai enabled but no OpenAI API key configured")
	}
	return nil
}

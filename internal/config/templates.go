package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# SMC Trader Configuration

[engine]
# Symbols scanned by the scan command
watchlist = ["BTCUSDT", "ETHUSDT"]
# Timeframes in trend -> execution order (at least two)
timeframes = ["1h", "15m", "5m"]
# Minimum risk-reward ratio for a plan to be accepted
min_risk_reward = 1.5
# Hours a deferred setup stays queued before expiring
queue_expiry_hours = 6
# Maximum deferred setups per symbol (oldest evicted first)
max_queued_setups = 10

[marketdata]
# Binance REST endpoint
base_url = "https://api.binance.com"
# Binance websocket endpoint
stream_url = "wss://stream.binance.com:9443/ws"
# Seconds a fetched candle series stays fresh
cache_ttl_secs = 60
# Candles fetched per timeframe
candle_count = 200

[ai]
# Enable the LLM alternative plan generator
enabled = false
# LLM model to use
model = "gpt-4o"

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"
`

const credentialsTemplate = `# SMC Trader Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[openai]
api_key = ""
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}

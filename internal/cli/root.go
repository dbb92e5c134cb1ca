// Package cli provides the command-line interface for the analysis engine.
package cli

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"smc-trader/internal/ai"
	"smc-trader/internal/config"
	"smc-trader/internal/engine"
	"smc-trader/internal/logging"
	"smc-trader/internal/marketdata"
	"smc-trader/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-08-28"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Fetcher marketdata.Fetcher
	Prices  *marketdata.Client
	Engine  *engine.Engine
	Store   store.DataStore
	Planner *ai.Planner
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Market data client with caching
	client := marketdata.NewClient(cfg.MarketData.BaseURL)
	app.Prices = client
	app.Fetcher = marketdata.NewCachedFetcher(client, cacheTTL(cfg))
	logger.Debug().Str("base_url", cfg.MarketData.BaseURL).Msg("Market data client initialized")

	// Analysis engine tuned from config
	app.Engine = engine.NewWithOptions(logger, engine.SystemClock(), engine.Options{
		MinRiskReward:   cfg.Engine.MinRiskReward,
		QueueExpiry:     time.Duration(cfg.Engine.QueueExpiryHours) * time.Hour,
		MaxQueuedSetups: cfg.Engine.MaxQueuedSetups,
	})

	// Initialize SQLite store
	dbPath := config.DefaultConfigDir() + "/smc-trader.db"
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, plan journaling unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	// LLM planner if enabled and key available
	if cfg.AI.Enabled && cfg.Credentials.OpenAI.APIKey != "" {
		app.Planner = ai.NewPlanner(ai.NewOpenAIClient(cfg.Credentials.OpenAI.APIKey, cfg.AI.Model))
		logger.Debug().Str("model", cfg.AI.Model).Msg("OpenAI planner initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "smc-trader",
		Short: "Smart money concepts pattern analyzer",
		Long: `smc-trader detects institutional price-action patterns on OHLCV candles
and synthesizes actionable trade plans from them.

It recognizes order blocks, fair value gaps, structure breaks, character
changes and liquidity grabs across multiple timeframes, validates them
against market structure and ranks the surviving setups by confluence.

Use 'smc-trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/smc-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newScanCmd(app))
	rootCmd.AddCommand(newQueueCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newPlansCmd(app))

	return rootCmd
}

func cacheTTL(cfg *config.Config) (ttl time.Duration) {
	ttl = time.Duration(cfg.MarketData.CacheTTLSecs) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	return ttl
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("smc-trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Engine Configuration")
	output.Printf("  Watchlist:       %s\n", strings.Join(cfg.Engine.Watchlist, ", "))
	output.Printf("  Timeframes:      %s\n", strings.Join(cfg.Engine.Timeframes, ", "))
	output.Printf("  Min Risk/Reward: %.1f\n", cfg.Engine.MinRiskReward)
	output.Printf("  Queue Expiry:    %dh\n", cfg.Engine.QueueExpiryHours)
	output.Printf("  Max Queued:      %d\n", cfg.Engine.MaxQueuedSetups)
	output.Println()

	output.Bold("Market Data")
	output.Printf("  Base URL:        %s\n", cfg.MarketData.BaseURL)
	output.Printf("  Stream URL:      %s\n", cfg.MarketData.StreamURL)
	output.Printf("  Cache TTL:       %ds\n", cfg.MarketData.CacheTTLSecs)
	output.Printf("  Candle Count:    %d\n", cfg.MarketData.CandleCount)
	output.Println()

	output.Bold("AI")
	output.Printf("  Enabled:         %v\n", cfg.AI.Enabled)
	output.Printf("  Model:           %s\n", cfg.AI.Model)
}

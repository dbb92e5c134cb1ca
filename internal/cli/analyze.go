package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"smc-trader/internal/models"
)

// newAnalyzeCmd creates the analyze command.
func newAnalyzeCmd(app *App) *cobra.Command {
	var withAI bool

	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Analyze a symbol for actionable trade setups",
		Long: `Fetch candles across the configured timeframes, detect price-action
patterns and print the resulting trade plan, if any.

A cycle that finds nothing actionable is a normal outcome, not an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			output := NewOutput(cmd)
			ctx := cmd.Context()

			plan, err := runAnalysis(ctx, app, symbol)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol": symbol,
					"plan":   plan,
					"queued": app.Engine.QueuedSetups(symbol),
				})
			}

			if plan == nil {
				if queued := app.Engine.QueuedSetups(symbol); len(queued) > 0 {
					s := queued[len(queued)-1]
					output.Warning("No actionable setup at current price for %s", symbol)
					output.Printf("  Deferred: %s %s, trigger band %s – %s, expires %s\n",
						s.Pattern.Direction, s.Pattern.Type,
						FormatPrice(s.PriceThreshold.Min), FormatPrice(s.PriceThreshold.Max),
						FormatDateTime(s.ExpiryTime))
				} else {
					output.Dim("No actionable setup for %s", symbol)
				}
				return nil
			}

			printPlan(output, plan)

			if withAI && app.Planner != nil {
				printAIPlan(ctx, app, output, symbol)
			}

			if app.Store != nil {
				if err := app.Store.SavePlan(ctx, plan); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to journal plan")
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withAI, "ai", false, "also request an AI alternative plan")
	return cmd
}

// runAnalysis fetches candles for every configured timeframe and runs one
// engine cycle. Deferred setups survive restarts through the journal:
// the queue is rehydrated before the cycle and written back after it.
func runAnalysis(ctx context.Context, app *App, symbol string) (*models.TradePlan, error) {
	candlesByTF := make(map[models.Timeframe][]models.Candle, len(app.Config.Engine.Timeframes))
	for _, raw := range app.Config.Engine.Timeframes {
		tf, err := models.ParseTimeframe(raw)
		if err != nil {
			return nil, err
		}
		candles, err := app.Fetcher.FetchCandles(ctx, symbol, tf, app.Config.MarketData.CandleCount)
		if err != nil {
			return nil, fmt.Errorf("fetching %s candles for %s: %w", tf, symbol, err)
		}
		candlesByTF[tf] = candles
	}

	restoreQueue(ctx, app, symbol)
	plan, err := app.Engine.Analyze(symbol, candlesByTF)
	syncQueueJournal(ctx, app, symbol)
	return plan, err
}

func printPlan(output *Output, plan *models.TradePlan) {
	fmt.Println()
	if plan.IsAPlusSetup {
		color.Green("★ A+ SETUP — %s %s", plan.Symbol, plan.Direction)
	} else {
		color.Cyan("Trade Plan — %s %s", plan.Symbol, plan.Direction)
	}
	output.Println("─────────────────────────────────────────")
	output.Printf("  Entry:       %s\n", FormatPrice(plan.EntryPrice))
	output.Printf("  Stop Loss:   %s\n", FormatPrice(plan.StopLoss))
	output.Printf("  Targets:     %s\n", FormatTargets(plan.Targets))
	output.Printf("  Risk/Reward: %s\n", FormatRiskReward(plan.RiskRewardRatio))
	output.Printf("  Confidence:  %s\n", FormatConfidence(plan.ConfidenceScore))
	output.Printf("  Timeframe:   %s\n", plan.Timeframe)

	if len(plan.TradingPatterns) > 0 {
		output.Printf("  Patterns:    %s\n", FormatPatterns(plan.TradingPatterns))
	}
	if len(plan.EntryConditions) > 0 {
		output.Println()
		output.Bold("  Entry Conditions")
		for _, c := range plan.EntryConditions {
			output.Printf("    • %s\n", c)
		}
	}
	if len(plan.ExitConditions) > 0 {
		output.Bold("  Exit Conditions")
		for _, c := range plan.ExitConditions {
			output.Printf("    • %s\n", c)
		}
	}
	if plan.IsAPlusSetup && len(plan.APlusReasons) > 0 {
		output.Println()
		output.Bold("  Confluence")
		for _, r := range plan.APlusReasons {
			output.Success("    ✓ %s", r)
		}
	}
	fmt.Println()
}

// printAIPlan asks the LLM for an alternative view. Failures here never
// fail the command; the engine plan already printed.
func printAIPlan(ctx context.Context, app *App, output *Output, symbol string) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	price, err := app.Prices.CurrentPrice(ctx, symbol)
	if err != nil {
		output.Warning("AI plan unavailable: %v", err)
		return
	}

	tf, err := models.ParseTimeframe(app.Config.Engine.Timeframes[0])
	if err != nil {
		return
	}
	candles, err := app.Fetcher.FetchCandles(ctx, symbol, tf, app.Config.MarketData.CandleCount)
	if err != nil || len(candles) == 0 {
		output.Warning("AI plan unavailable: no candles")
		return
	}

	structure := app.Engine.Structure(symbol)
	aiPlan, err := app.Planner.GeneratePlan(ctx, symbol, structure, price)
	if err != nil {
		output.Warning("AI plan unavailable: %v", err)
		return
	}

	color.Magenta("🤖 AI Alternative Plan")
	output.Printf("  Direction:   %s\n", aiPlan.Direction)
	output.Printf("  Entry:       %s\n", FormatPrice(aiPlan.EntryPrice))
	output.Printf("  Stop Loss:   %s\n", FormatPrice(aiPlan.StopLoss))
	output.Printf("  Targets:     %s\n", FormatTargets(aiPlan.Targets))
	output.Printf("  Risk/Reward: %s\n", FormatRiskReward(aiPlan.RiskRewardRatio))
	fmt.Println()
}

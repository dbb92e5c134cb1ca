package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"smc-trader/internal/models"
)

// scanResult is one row of a watchlist scan.
type scanResult struct {
	Symbol string             `json:"symbol"`
	Plan   *models.TradePlan  `json:"plan,omitempty"`
	Queued int                `json:"queued"`
	Err    string             `json:"error,omitempty"`
}

// newScanCmd creates the scan command.
func newScanCmd(app *App) *cobra.Command {
	var symbols []string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the watchlist for trade setups",
		Long: `Run one analysis cycle for every watchlist symbol and summarize the
results. A symbol that fails to fetch does not abort the scan.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			watchlist := symbols
			if len(watchlist) == 0 {
				watchlist = app.Config.Engine.Watchlist
			}
			if len(watchlist) == 0 {
				output.Warning("Watchlist is empty; set engine.watchlist or pass --symbols")
				return nil
			}

			results := make([]scanResult, 0, len(watchlist))
			for _, raw := range watchlist {
				symbol := strings.ToUpper(raw)
				res := scanResult{Symbol: symbol}

				plan, err := runAnalysis(ctx, app, symbol)
				if err != nil {
					res.Err = err.Error()
					app.Logger.Warn().Err(err).Str("symbol", symbol).Msg("Scan cycle failed")
				} else {
					res.Plan = plan
					if plan != nil && app.Store != nil {
						if err := app.Store.SavePlan(ctx, plan); err != nil {
							app.Logger.Warn().Err(err).Msg("Failed to journal plan")
						}
					}
				}
				res.Queued = len(app.Engine.QueuedSetups(symbol))
				results = append(results, res)
			}

			if output.IsJSON() {
				return output.JSON(results)
			}

			fmt.Println()
			color.Cyan("🔍 Watchlist Scan — %d symbols", len(results))
			table := NewTable(output, "SYMBOL", "RESULT", "DIRECTION", "ENTRY", "R:R", "CONF", "QUEUED")
			for _, res := range results {
				switch {
				case res.Err != "":
					table.AddRow(res.Symbol, output.Red("error"), "-", "-", "-", "-", fmt.Sprintf("%d", res.Queued))
				case res.Plan == nil:
					table.AddRow(res.Symbol, output.DimText("no setup"), "-", "-", "-", "-", fmt.Sprintf("%d", res.Queued))
				default:
					label := "plan"
					if res.Plan.IsAPlusSetup {
						label = output.Green("A+ setup")
					}
					table.AddRow(
						res.Symbol,
						label,
						output.FormatDirection(string(res.Plan.Direction)),
						FormatPrice(res.Plan.EntryPrice),
						FormatRiskReward(res.Plan.RiskRewardRatio),
						FormatConfidence(res.Plan.ConfidenceScore),
						fmt.Sprintf("%d", res.Queued),
					)
				}
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to scan (default: configured watchlist)")
	return cmd
}

package cli

import (
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"smc-trader/internal/marketdata"
	"smc-trader/internal/models"
)

// newWatchCmd creates the watch command.
func newWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <symbol>",
		Short: "Stream candle closes and re-analyze on each one",
		Long: `Subscribe to the live kline stream for the symbol's execution
timeframe and run a fresh analysis cycle on every candle close. Queued
setups whose trigger band is reached produce plans immediately.

Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			output := NewOutput(cmd)
			ctx := cmd.Context()

			executionTF, err := models.ParseTimeframe(
				app.Config.Engine.Timeframes[len(app.Config.Engine.Timeframes)-1])
			if err != nil {
				return err
			}

			// Warm the cache so the first stream close analyzes a full series.
			if _, err := runAnalysis(ctx, app, symbol); err != nil {
				return err
			}

			cache, _ := app.Fetcher.(*marketdata.CachedFetcher)
			stream := marketdata.NewKlineStream(app.Config.MarketData.StreamURL, app.Logger)
			updates := make(chan marketdata.PriceUpdate, 16)

			go func() {
				if err := stream.Run(ctx, symbol, executionTF, updates); err != nil {
					app.Logger.Error().Err(err).Msg("Stream terminated")
				}
				close(updates)
			}()

			color.Cyan("👁  Watching %s on %s candle closes (Ctrl-C to stop)", symbol, executionTF)

			for {
				select {
				case <-ctx.Done():
					return nil
				case update, ok := <-updates:
					if !ok {
						return nil
					}
					if cache != nil {
						cache.Append(symbol, update.Timeframe, update.Candle)
					}
					output.Dim("%s close %s", FormatDateTime(update.Candle.Timestamp), FormatPrice(update.Candle.Close))

					plan, err := runAnalysis(ctx, app, symbol)
					if err != nil {
						app.Logger.Warn().Err(err).Msg("Analysis cycle failed")
						continue
					}
					if plan == nil {
						continue
					}
					printPlan(output, plan)
					if app.Store != nil {
						if err := app.Store.SavePlan(ctx, plan); err != nil {
							app.Logger.Warn().Err(err).Msg("Failed to journal plan")
						}
					}
				}
			}
		},
	}
	return cmd
}

package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// newQueueCmd creates the queue command group.
func newQueueCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect deferred trade setups",
		Long: `Setups whose entry is too far from the current price wait in a
per-symbol queue until price reaches the trigger band or they expire.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <symbol>",
		Short: "List queued setups for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			output := NewOutput(cmd)

			// A fresh process holds nothing in memory yet; journaled
			// deferrals are still live setups.
			restoreQueue(cmd.Context(), app, symbol)
			setups := app.Engine.QueuedSetups(symbol)
			if output.IsJSON() {
				return output.JSON(setups)
			}

			if len(setups) == 0 {
				output.Dim("No queued setups for %s", symbol)
				return nil
			}

			fmt.Println()
			color.Cyan("⏳ Queued Setups — %s", symbol)
			table := NewTable(output, "PATTERN", "DIRECTION", "ENTRY", "TRIGGER BAND", "QUEUED", "EXPIRES")
			for _, s := range setups {
				table.AddRow(
					string(s.Pattern.Type),
					output.FormatDirection(string(s.Pattern.Direction)),
					FormatPrice(s.EntryPrice),
					fmt.Sprintf("%s – %s", FormatPrice(s.PriceThreshold.Min), FormatPrice(s.PriceThreshold.Max)),
					FormatDateTime(s.QueueTime),
					FormatDateTime(s.ExpiryTime),
				)
			}
			table.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <symbol>",
		Short: "Drop all queued setups for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			output := NewOutput(cmd)

			restoreQueue(cmd.Context(), app, symbol)
			n := len(app.Engine.QueuedSetups(symbol))
			app.Engine.ClearQueue(symbol)
			syncQueueJournal(cmd.Context(), app, symbol)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"symbol": symbol, "cleared": n})
			}
			output.Success("Cleared %d queued setup(s) for %s", n, symbol)
			return nil
		},
	})

	return cmd
}

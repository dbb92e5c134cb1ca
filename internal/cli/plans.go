package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"smc-trader/internal/models"
	"smc-trader/internal/store"
)

// planCSVRow is the flattened journal row written by plans export.
type planCSVRow struct {
	ID          string  `csv:"id"`
	Symbol      string  `csv:"symbol"`
	Direction   string  `csv:"direction"`
	EntryPrice  float64 `csv:"entry_price"`
	StopLoss    float64 `csv:"stop_loss"`
	Targets     string  `csv:"targets"`
	RiskReward  float64 `csv:"risk_reward"`
	Confidence  float64 `csv:"confidence"`
	APlus       bool    `csv:"a_plus"`
	Timeframe   string  `csv:"timeframe"`
	Patterns    string  `csv:"patterns"`
	Status      string  `csv:"status"`
	CreatedAt   string  `csv:"created_at"`
}

// newPlansCmd creates the plans command group.
func newPlansCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Browse and export the trade plan journal",
	}

	cmd.AddCommand(newPlansListCmd(app))
	cmd.AddCommand(newPlansExportCmd(app))
	cmd.AddCommand(newPlansStatusCmd(app))
	return cmd
}

func newPlansListCmd(app *App) *cobra.Command {
	var symbol, status string
	var limit int
	var days int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled trade plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("plan journal unavailable")
			}

			plans, err := app.Store.GetPlans(cmd.Context(), planFilter(symbol, status, limit, days))
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(plans)
			}

			if len(plans) == 0 {
				output.Dim("No plans in journal")
				return nil
			}

			fmt.Println()
			color.Cyan("📒 Trade Plan Journal — %d plan(s)", len(plans))
			table := NewTable(output, "CREATED", "SYMBOL", "DIRECTION", "ENTRY", "STOP", "R:R", "CONF", "STATUS")
			for _, p := range plans {
				table.AddRow(
					FormatDateTime(p.CreatedAt),
					p.Symbol,
					output.FormatDirection(string(p.Direction)),
					FormatPrice(p.EntryPrice),
					FormatPrice(p.StopLoss),
					FormatRiskReward(p.RiskRewardRatio),
					FormatConfidence(p.ConfidenceScore),
					string(p.Status),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (PENDING, TRIGGERED, EXPIRED, CANCELLED)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum plans to list")
	cmd.Flags().IntVar(&days, "days", 0, "only plans from the last N days")
	return cmd
}

func newPlansExportCmd(app *App) *cobra.Command {
	var symbol, outFile string
	var days int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export journaled plans to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("plan journal unavailable")
			}

			plans, err := app.Store.GetPlans(cmd.Context(), planFilter(symbol, "", 0, days))
			if err != nil {
				return err
			}

			rows := make([]planCSVRow, 0, len(plans))
			for _, p := range plans {
				rows = append(rows, planCSVRow{
					ID:         p.ID,
					Symbol:     p.Symbol,
					Direction:  string(p.Direction),
					EntryPrice: p.EntryPrice,
					StopLoss:   p.StopLoss,
					Targets:    FormatTargets(p.Targets),
					RiskReward: p.RiskRewardRatio,
					Confidence: p.ConfidenceScore,
					APlus:      p.IsAPlusSetup,
					Timeframe:  string(p.Timeframe),
					Patterns:   FormatPatterns(p.TradingPatterns),
					Status:     string(p.Status),
					CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
				})
			}

			f, err := os.Create(outFile)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outFile, err)
			}
			defer f.Close()

			if err := gocsv.MarshalFile(&rows, f); err != nil {
				return fmt.Errorf("writing CSV: %w", err)
			}

			output.Success("Exported %d plan(s) to %s", len(rows), outFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().StringVar(&outFile, "output", "plans.csv", "output file path")
	cmd.Flags().IntVar(&days, "days", 0, "only plans from the last N days")
	return cmd
}

func newPlansStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <plan-id> <status>",
		Short: "Update a journaled plan's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("plan journal unavailable")
			}

			status := models.PlanStatus(strings.ToUpper(args[1]))
			switch status {
			case models.PlanPending, models.PlanTriggered, models.PlanExpired, models.PlanCancelled:
			default:
				return fmt.Errorf("invalid status: %s", args[1])
			}

			if err := app.Store.UpdatePlanStatus(cmd.Context(), args[0], status); err != nil {
				return err
			}
			output.Success("Plan %s marked %s", args[0], status)
			return nil
		},
	}
}

func planFilter(symbol, status string, limit, days int) store.PlanFilter {
	filter := store.PlanFilter{
		Symbol: strings.ToUpper(symbol),
		Limit:  limit,
	}
	if status != "" {
		filter.Status = models.PlanStatus(strings.ToUpper(status))
	}
	if days > 0 {
		filter.StartDate = time.Now().AddDate(0, 0, -days)
	}
	return filter
}

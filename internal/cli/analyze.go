package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"intraday-backtester/internal/analytics"
	"intraday-backtester/internal/models"
	"intraday-backtester/internal/store"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <trades.csv>",
		Short: "Compute performance metrics from a trade ledger",
		Long: `Analyze aggregates a trade ledger into daily PnL and derives
win/loss statistics, drawdowns, and risk-adjusted return ratios. The
result is appended to the persistent strategy summary file.

With --monte-carlo, also bootstraps the daily PnL distribution and, for
range-based strategies, runs a parameter sensitivity sweep.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return analyzeTrades(cmd, app, args[0])
		},
	}

	cmd.Flags().Float64("margin", 0, "capital allocated to the strategy")
	cmd.Flags().Int("lot-size", 0, "lot size multiplier for PnL")
	cmd.Flags().Bool("monte-carlo", false, "run Monte Carlo bootstrap analysis")
	cmd.Flags().Int("simulations", 0, "number of Monte Carlo simulations")
	cmd.Flags().Bool("no-summary", false, "skip appending to the summary file")

	return cmd
}

func analyzeTrades(cmd *cobra.Command, app *App, tradesPath string) error {
	output := NewOutput(cmd)
	cfg := app.Config

	margin := cfg.Analytics.Margin
	if v, _ := cmd.Flags().GetFloat64("margin"); v > 0 {
		margin = v
	}
	lotSize := cfg.Analytics.LotSize
	if v, _ := cmd.Flags().GetInt("lot-size"); v > 0 {
		lotSize = v
	}
	sims := cfg.Analytics.Simulations
	if v, _ := cmd.Flags().GetInt("simulations"); v > 0 {
		sims = v
	}

	trades, err := store.ReadTrades(tradesPath)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		return fmt.Errorf("trade ledger %s is empty", tradesPath)
	}

	name := strings.TrimSuffix(filepath.Base(tradesPath), filepath.Ext(tradesPath))
	summary, err := analytics.Compute(name, trades, margin, lotSize)
	if err != nil {
		return err
	}

	if output.IsJSON() {
		if err := output.JSON(summary); err != nil {
			return err
		}
	} else {
		analytics.PrintSummary(output.Writer(), summary)
	}

	if noSummary, _ := cmd.Flags().GetBool("no-summary"); !noSummary {
		summaryPath := filepath.Join(cfg.Output.Dir, "strategy_summary.csv")
		if err := analytics.AppendToSummaryFile(summaryPath, summary); err != nil {
			return err
		}
		if !output.IsJSON() {
			output.Success("Summary saved: %s", summaryPath)
		}
	}

	if mc, _ := cmd.Flags().GetBool("monte-carlo"); mc {
		return runMonteCarlo(output, cfg.Output.Dir, name, trades, sims, cfg.Analytics.Seed)
	}
	return nil
}

func runMonteCarlo(output *Output, outputDir, name string, trades []models.TradeRecord, sims int, seed int64) error {
	rows := analytics.Bootstrap(trades, sims, seed)

	if analytics.UsesRangeInput(trades) {
		// Sensitivity gets its own seed so the two analyses draw
		// independent random sequences.
		rows = append(rows, analytics.ParameterSensitivity(trades, sims, 0.8, 1.2, seed+1)...)
	}

	var bootstrap, sensitivity []analytics.SimulationRow
	for _, r := range rows {
		if r.AnalysisType == "bootstrap" {
			bootstrap = append(bootstrap, r)
		} else {
			sensitivity = append(sensitivity, r)
		}
	}

	if output.IsJSON() {
		result := map[string]interface{}{
			"bootstrap": analytics.Summarize(bootstrap),
		}
		if len(sensitivity) > 0 {
			result["parameter_sensitivity"] = analytics.Summarize(sensitivity)
		}
		if err := output.JSON(result); err != nil {
			return err
		}
	} else {
		analytics.PrintMonteCarlo(output.Writer(), "Bootstrap", analytics.Summarize(bootstrap))
		if len(sensitivity) > 0 {
			analytics.PrintMonteCarlo(output.Writer(), "Parameter sensitivity", analytics.Summarize(sensitivity))
		}
	}

	resultsPath := filepath.Join(outputDir, name+"_monte_carlo.csv")
	if err := analytics.WriteSimulations(resultsPath, rows); err != nil {
		return err
	}
	if !output.IsJSON() {
		output.Success("Simulations saved: %s", resultsPath)
	}
	return nil
}

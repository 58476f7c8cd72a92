package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"intraday-backtester/internal/engine"
	"intraday-backtester/internal/logging"
	"intraday-backtester/internal/models"
	"intraday-backtester/internal/store"
	"intraday-backtester/internal/strategy"
)

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest over a date range",
		Long: `Run replays every trading day in the range through the selected
strategy and writes the trade ledger, error ledger, and optionally the
minute PnL series to the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBacktest(cmd, app)
		},
	}

	cmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().String("index", "", "index to trade (NIFTY, SENSEX)")
	cmd.Flags().String("strategy", "", "strategy name (see 'backtester strategies')")
	cmd.Flags().String("archive", "", "path to the candle archive")
	cmd.Flags().String("output", "", "output directory")
	cmd.Flags().String("fallback", "", "candle fallback policy (LAST, NEAREST, NONE)")
	cmd.Flags().String("convention", "", "timing convention override (OPEN, CLOSE)")
	cmd.Flags().Int("batch-size", 0, "days between cache clears")
	cmd.Flags().Bool("minute-pnl", false, "record the per-minute PnL series")

	return cmd
}

func runBacktest(cmd *cobra.Command, app *App) error {
	output := NewOutput(cmd)
	cfg := app.Config

	// Flags override config file values.
	if v, _ := cmd.Flags().GetString("from"); v != "" {
		cfg.Run.StartDate = v
	}
	if v, _ := cmd.Flags().GetString("to"); v != "" {
		cfg.Run.EndDate = v
	}
	if v, _ := cmd.Flags().GetString("index"); v != "" {
		cfg.Run.Index = v
	}
	if v, _ := cmd.Flags().GetString("strategy"); v != "" {
		cfg.Run.Strategy = v
	}
	if v, _ := cmd.Flags().GetString("archive"); v != "" {
		cfg.Data.ArchivePath = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Output.Dir = v
	}
	if v, _ := cmd.Flags().GetString("fallback"); v != "" {
		cfg.Run.Fallback = v
	}
	if v, _ := cmd.Flags().GetString("convention"); v != "" {
		cfg.Run.Convention = v
	}
	if v, _ := cmd.Flags().GetInt("batch-size"); v > 0 {
		cfg.Run.BatchSize = v
	}
	if v, _ := cmd.Flags().GetBool("minute-pnl"); v {
		cfg.Run.MinutePnL = true
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	from, err := models.ParseDate(cfg.Run.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	to, err := models.ParseDate(cfg.Run.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}
	fallback, err := engine.ParseFallbackPolicy(cfg.Run.Fallback)
	if err != nil {
		return err
	}
	convention, err := strategy.ParseTimingConvention(cfg.Run.Convention)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := logging.WithIndex(app.Logger, cfg.Run.Index)

	archive, err := store.NewSQLiteArchive(cfg.Data.ArchivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	calendar, err := store.NewMarketCalendar(ctx, archive, cfg.Run.Index)
	if err != nil {
		return err
	}
	volatility, err := store.NewVolatilityTable(ctx, archive, cfg.Data.VolatilityName)
	if err != nil {
		return err
	}

	strat, err := strategy.New(normalizeStrategyName(cfg.Run.Strategy), volatility)
	if err != nil {
		return err
	}

	eng := &engine.EventEngine{
		Archive:    archive,
		Cache:      store.NewCandleCache(archive, cfg.Run.Index),
		Calendar:   calendar,
		Logger:     logger,
		Fallback:   fallback,
		Convention: convention,
	}
	if cfg.Run.MinutePnL {
		eng.Tracker = engine.NewMinutePnLTracker()
	}

	driver := &engine.Driver{
		Engine:    eng,
		BatchSize: cfg.Run.BatchSize,
		OutputDir: cfg.Output.Dir,
		Verbose:   !output.IsJSON(),
	}

	result, err := driver.Run(ctx, strat, from, to)
	if err != nil {
		return err
	}
	if err := driver.WriteOutputs(result, strat, from, to); err != nil {
		return err
	}

	if output.IsJSON() {
		return output.JSON(map[string]interface{}{
			"days":        result.Days,
			"failed_days": result.FailedDays,
			"trades":      len(result.Trades),
			"issues":      len(result.Issues),
			"total_pnl":   result.TotalPnL,
		})
	}

	output.Println()
	output.Bold("Backtest complete")
	output.Printf("  Days:       %d (%d failed)\n", result.Days, result.FailedDays)
	output.Printf("  Trades:     %d\n", len(result.Trades))
	output.Printf("  Issues:     %d\n", len(result.Issues))
	output.Printf("  Total PnL:  %s\n", output.FormatPnL(result.TotalPnL))
	output.Printf("  Output dir: %s\n", cfg.Output.Dir)
	return nil
}

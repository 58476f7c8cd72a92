package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/logging"
	"intraday-backtester/internal/models"
	"intraday-backtester/internal/store"
	"intraday-backtester/internal/strategy"
)

// Driver runs a strategy across a date range, surviving per-day
// failures and bounding cache growth with periodic eviction.
type Driver struct {
	Engine    *EventEngine
	BatchSize int
	OutputDir string
	Verbose   bool
}

// RunResult is the aggregate outcome of a multi-day run.
type RunResult struct {
	Trades     []models.TradeRecord
	Issues     []models.IssueRecord
	Days       int
	FailedDays int
	TotalPnL   float64
}

// Run replays every trading day in [from, to] through the strategy.
// A day that errors becomes an issue row and the run continues.
func (d *Driver) Run(ctx context.Context, strat strategy.NamedStrategy, from, to time.Time) (*RunResult, error) {
	e := d.Engine
	index := e.Cache.Index()

	dates, err := e.Archive.TradingDates(ctx, index, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "listing trading dates")
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("no trading dates for %s in [%s, %s]: %w",
			index, models.DateKey(from), models.DateKey(to), errors.ErrDataNotFound)
	}

	result := &RunResult{Days: len(dates)}
	log := logging.WithIndex(logging.WithStrategy(e.Logger, strat.Name()), index)

	if d.Verbose {
		cfg := strat.Config()
		color.Cyan("Strategy: %s", strat.Name())
		color.Cyan("Entry %s | Exit %s | Days %d", cfg.EntryTime, cfg.ExitTime, len(dates))
	}

	batch := d.BatchSize
	if batch <= 0 {
		batch = 50
	}

	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		trades, issues, err := d.runDay(ctx, strat, date)
		if err != nil {
			result.FailedDays++
			result.Issues = append(result.Issues, models.IssueRecord{
				Date:     models.DateKey(date),
				Index:    index,
				Strategy: strat.Name(),
				Type:     models.IssueError,
				Action:   "DAY",
				Message:  err.Error(),
			})
			log.Error().Str("date", models.DateKey(date)).Err(err).Msg("Day failed")
			if d.Verbose {
				color.Red("[%d/%d] %s  failed: %v", i+1, len(dates), models.DateKey(date), err)
			}
			continue
		}

		result.Trades = append(result.Trades, trades...)
		result.Issues = append(result.Issues, issues...)

		dayPnL := 0.0
		for _, t := range trades {
			dayPnL += t.PnL
		}
		result.TotalPnL += dayPnL

		logging.LogDaySummary(log, models.DateKey(date), len(trades), len(issues), dayPnL)
		if d.Verbose {
			color.Green("[%d/%d] %s  trades: %d  pnl: %+.2f", i+1, len(dates), models.DateKey(date), len(trades), dayPnL)
		}

		// Bound memory over long ranges.
		if (i+1)%batch == 0 {
			stats := e.Cache.Stats()
			log.Debug().Int("expiries", stats.Expiries).Int("legs", stats.Legs).Msg("Clearing candle cache")
			e.Cache.Clear()
		}
	}

	return result, nil
}

// runDay dispatches on the strategy family.
func (d *Driver) runDay(ctx context.Context, strat strategy.NamedStrategy, date time.Time) ([]models.TradeRecord, []models.IssueRecord, error) {
	switch s := strat.(type) {
	case strategy.Strategy:
		return d.Engine.RunDay(ctx, date, s)
	case strategy.StaticLegStrategy:
		return d.Engine.RunStaticDay(ctx, date, s)
	default:
		return nil, nil, errors.NewStrategyError(strat.Name(), "", "strategy implements neither execution family")
	}
}

// WriteOutputs persists the run's ledgers under the output directory,
// plus the minute PnL series when a tracker was attached.
func (d *Driver) WriteOutputs(result *RunResult, strat strategy.NamedStrategy, from, to time.Time) error {
	base := runFileBase(d.Engine.Cache.Index(), strat.Name(), from, to)

	if err := store.WriteTrades(filepath.Join(d.OutputDir, base+"_trades.csv"), result.Trades); err != nil {
		return err
	}
	if len(result.Issues) > 0 {
		if err := store.WriteIssues(filepath.Join(d.OutputDir, base+"_errors.csv"), result.Issues); err != nil {
			return err
		}
	}
	if d.Engine.Tracker != nil {
		pnlDir := filepath.Join(d.OutputDir, "1min_pnl")
		if err := d.Engine.Tracker.Save(
			filepath.Join(pnlDir, base+".csv"),
			filepath.Join(pnlDir, base+"_issues.csv"),
		); err != nil {
			return err
		}
	}
	return nil
}

// runFileBase is the shared stem for a run's output files,
// e.g. nifty_volatilitystraddles_20230801_20231231.
func runFileBase(index, strategyName string, from, to time.Time) string {
	flat := strings.ToLower(strings.ReplaceAll(strategyName, " ", ""))
	return fmt.Sprintf("%s_%s_%s_%s",
		strings.ToLower(index), flat, from.Format("20060102"), to.Format("20060102"))
}

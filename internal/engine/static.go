package engine

import (
	"context"
	"fmt"
	"time"

	"intraday-backtester/internal/logging"
	"intraday-backtester/internal/models"
	"intraday-backtester/internal/strategy"
)

// RunStaticDay settles every leg of a fixed-strike strategy for one
// trading day. Legs resolve independently, so one leg's missing data
// costs only that leg.
func (e *EventEngine) RunStaticDay(ctx context.Context, date time.Time, strat strategy.StaticLegStrategy) ([]models.TradeRecord, []models.IssueRecord, error) {
	var (
		trades []models.TradeRecord
		issues []models.IssueRecord
	)

	index := e.Cache.Index()
	dateKey := models.DateKey(date)
	log := logging.WithTradeDate(logging.WithStrategy(e.Logger, strat.Name()), dateKey)

	mc, err := e.Calendar.Context(date)
	if err != nil {
		return nil, nil, err
	}
	expiry := mc.WeeklyExpiry
	expiryKey := models.DateKey(expiry)

	cfg := strat.Config()

	spot, err := e.spotAt(ctx, index, date, cfg.EntryTime)
	if err != nil {
		return nil, nil, err
	}

	for _, leg := range strat.Legs(spot) {
		series, err := e.Cache.Leg(ctx, date, expiry, leg.Strike, leg.Type)
		if err != nil {
			issues = append(issues, legIssue(dateKey, index, strat.Name(), expiryKey, leg, err))
			log.Warn().Str("leg_id", leg.LegID).Int("strike", leg.Strike).Err(err).Msg("Leg skipped")
			continue
		}

		res, err := ResolveLeg(series, cfg.EntryTime, cfg.ExitTime, cfg.StopLossPct, leg.Side)
		if err != nil {
			issues = append(issues, legIssue(dateKey, index, strat.Name(), expiryKey, leg, err))
			log.Warn().Str("leg_id", leg.LegID).Int("strike", leg.Strike).Err(err).Msg("Leg skipped")
			continue
		}

		trades = append(trades, models.TradeRecord{
			Date:            dateKey,
			Index:           index,
			Expiry:          expiryKey,
			Day:             mc.Day,
			EntryTime:       res.EntryTime.String(),
			IndexEntryPrice: models.Float(spot),
			EntryPrice:      res.EntryPrice,
			ExitTime:        res.ExitTime.String(),
			ExitPrice:       res.ExitPrice,
			ExitReason:      res.ExitReason,
			Strike:          leg.Strike,
			Type:            leg.Type,
			Qty:             res.Qty,
			PnL:             res.PnL,
		})
		logging.LogTrade(log, leg.LegID, leg.Strike, string(leg.Type), string(res.ExitReason), res.PnL)
	}

	sortTrades(trades)
	return trades, issues, nil
}

// spotAt reads the index Close at the entry minute.
func (e *EventEngine) spotAt(ctx context.Context, index string, date time.Time, t models.TimeOfDay) (float64, error) {
	candles, err := e.Archive.IndexDay(ctx, index, date)
	if err != nil {
		return 0, err
	}
	for _, c := range candles {
		if c.Minute() == t {
			return c.Close, nil
		}
	}
	return 0, fmt.Errorf("spot %s candle missing for %s", t, models.DateKey(date))
}

func legIssue(date, index, strat, expiry string, leg strategy.StaticLeg, err error) models.IssueRecord {
	return models.IssueRecord{
		Date:       date,
		Index:      index,
		Strategy:   strat,
		Type:       models.IssueError,
		Action:     "LEG",
		Expiry:     expiry,
		Strike:     leg.Strike,
		OptionType: leg.Type,
		Message:    err.Error(),
	}
}

// Package engine replays index minutes through a strategy and settles the
// resulting option trades against the candle archive.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/logging"
	"intraday-backtester/internal/models"
	"intraday-backtester/internal/store"
	"intraday-backtester/internal/strategy"
)

// FallbackPolicy selects how a candle lookup degrades when the exact
// minute is absent from a series.
type FallbackPolicy string

const (
	// FallbackLast degrades to the last candle at or before the target,
	// then to the last candle of the day.
	FallbackLast FallbackPolicy = "LAST"
	// FallbackNearest degrades to the candle closest in time.
	FallbackNearest FallbackPolicy = "NEAREST"
	// FallbackNone treats a miss as missing data.
	FallbackNone FallbackPolicy = "NONE"
)

// ParseFallbackPolicy validates a policy string.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch FallbackPolicy(s) {
	case FallbackLast, FallbackNearest, FallbackNone:
		return FallbackPolicy(s), nil
	}
	return "", fmt.Errorf("unknown fallback policy %q: %w", s, errors.ErrConfigInvalid)
}

// EventEngine runs event-driven strategies one day at a time. The timing
// convention comes from the strategy; the fallback policy from config.
// One engine value is reused across days.
type EventEngine struct {
	Archive  store.Archive
	Cache    *store.CandleCache
	Calendar store.Calendar
	Logger   zerolog.Logger
	Fallback FallbackPolicy
	Tracker  *MinutePnLTracker

	// Convention, when set, overrides every strategy's own timing
	// convention for the run.
	Convention strategy.TimingConvention
}

// openLeg is one live position in the book, pinned to its candle series
// so exits and MTM snapshots never reload.
type openLeg struct {
	intent     models.Intent
	entryPrice float64
	entryTime  models.TimeOfDay
	series     *store.LegSeries
}

// safeCandle resolves the candle at t under the engine's fallback
// policy. The warning is empty on an exact hit and describes the
// substitution otherwise.
func (e *EventEngine) safeCandle(s *store.LegSeries, t models.TimeOfDay) (models.Candle, models.TimeOfDay, string, bool) {
	if c, ok := s.At(t); ok {
		return c, t, "", true
	}

	switch e.Fallback {
	case FallbackLast:
		if c, ok := s.LastAtOrBefore(t); ok {
			actual := c.Minute()
			return c, actual, fmt.Sprintf("candle %s not found, used %s (last before target)", t, actual), true
		}
		if c, ok := s.Last(); ok {
			actual := c.Minute()
			return c, actual, fmt.Sprintf("candle %s not found, used %s (last available)", t, actual), true
		}
	case FallbackNearest:
		if c, ok := s.Nearest(t); ok {
			actual := c.Minute()
			return c, actual, fmt.Sprintf("candle %s not found, used %s (nearest)", t, actual), true
		}
	}

	return models.Candle{}, 0, fmt.Sprintf("candle %s not found and no fallback available", t), false
}

// RunDay replays one trading day through the strategy. Trades and issue
// rows come back together; a non-nil error means the day was aborted and
// its partial trades discarded by the caller.
func (e *EventEngine) RunDay(ctx context.Context, date time.Time, strat strategy.Strategy) ([]models.TradeRecord, []models.IssueRecord, error) {
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

	indexCandles, err := e.Archive.IndexDay(ctx, index, date)
	if err != nil {
		return nil, nil, err
	}

	if err := strat.OnDayStart(date, index, mc); err != nil {
		return nil, nil, err
	}
	if e.Tracker != nil {
		e.Tracker.NewDay(dateKey, strat.Name())
	}

	conv := strat.Convention()
	if e.Convention != "" {
		conv = e.Convention
	}
	cfg := strat.Config()

	book := make(map[string]*openLeg)
	var bookOrder []string
	var pending []models.Intent

	issue := func(typ models.IssueType, action string, strike int, optType models.OptionType,
		requested, actual, msg string) {
		issues = append(issues, models.IssueRecord{
			Date:          dateKey,
			Index:         index,
			Strategy:      strat.Name(),
			Type:          typ,
			Action:        action,
			Expiry:        expiryKey,
			Strike:        strike,
			OptionType:    optType,
			RequestedTime: requested,
			ActualTime:    actual,
			Message:       msg,
		})
	}

	addLeg := func(legID string, leg *openLeg) {
		if _, exists := book[legID]; !exists {
			bookOrder = append(bookOrder, legID)
		}
		book[legID] = leg
	}
	dropLeg := func(legID string) {
		delete(book, legID)
		for i, id := range bookOrder {
			if id == legID {
				bookOrder = append(bookOrder[:i], bookOrder[i+1:]...)
				break
			}
		}
	}

	closeLeg := func(leg *openLeg, exitPrice float64, actualExit models.TimeOfDay,
		reason models.ExitReason, indexExit *float64) {
		pnl := (exitPrice - leg.entryPrice) * -1
		if e.Tracker != nil {
			e.Tracker.AddRealized(pnl)
		}

		meta := leg.intent.Meta
		indexEntry := meta.EntryIndexPrice
		if indexEntry == nil {
			indexEntry = meta.RefPrice
		}

		trades = append(trades, models.TradeRecord{
			Date:            dateKey,
			Index:           index,
			Expiry:          expiryKey,
			Day:             mc.Day,
			EntryTime:       leg.entryTime.String(),
			IndexEntryPrice: indexEntry,
			EntryPrice:      leg.entryPrice,
			ExitTime:        actualExit.String(),
			IndexExitPrice:  indexExit,
			ExitPrice:       exitPrice,
			ExitReason:      reason,
			Strike:          leg.intent.Strike,
			Type:            leg.intent.Type,
			Qty:             -1,
			PnL:             pnl,
			SLIndex:         meta.SLIndex,
			SLBeforeRound:   meta.SLBeforeRound,
			Volatility:      meta.Volatility,
			UpperRange:      meta.Upper,
			LowerRange:      meta.Lower,
			RangeUsed:       meta.RangeUsed,
		})
		logging.LogTrade(log, leg.intent.LegID, leg.intent.Strike, string(leg.intent.Type), string(reason), pnl)
	}

	for _, ic := range indexCandles {
		t := ic.Minute()
		if t >= cfg.ExitTime {
			break
		}

		// Index price feed. The revised convention reads the settled
		// Close except for the scheduled entry minute; the legacy
		// convention reads the Open throughout.
		var indexPrice float64
		if conv == strategy.TimingClose && t != cfg.EntryTime {
			indexPrice = ic.Close
		} else {
			indexPrice = ic.Open
		}

		// Entries queued on the previous minute fill on this Open.
		for _, p := range pending {
			series, err := e.Cache.Leg(ctx, date, expiry, p.Strike, p.Type)
			if err != nil {
				issue(models.IssueWarning, "PENDING_ENTRY", p.Strike, p.Type,
					t.String(), "N/A", "no candle for pending entry, leg skipped")
				continue
			}
			candle, actual, warn, ok := e.safeCandle(series, t)
			if !ok {
				issue(models.IssueWarning, "PENDING_ENTRY", p.Strike, p.Type,
					t.String(), "N/A", "no candle for pending entry, leg skipped")
				continue
			}
			if warn != "" {
				issue(models.IssueWarning, "PENDING_ENTRY", p.Strike, p.Type,
					t.String(), actual.String(), warn)
			}
			addLeg(p.LegID, &openLeg{
				intent:     p,
				entryPrice: candle.Open,
				entryTime:  actual,
				series:     series,
			})
		}
		pending = pending[:0]

		for _, a := range strat.OnMinute(ic.Timestamp, indexPrice) {
			switch a.Kind {
			case models.IntentEnter:
				if !a.Type.Valid() {
					issue(models.IssueError, "ENTRY", a.Strike, a.Type,
						t.String(), "N/A", errors.NewStrategyError(strat.Name(), a.LegID, "unknown option type").Error())
					continue
				}

				// Only the scheduled first entry fills on the candle
				// that triggered it. Under the revised convention every
				// later entry waits for the next Open.
				if conv == strategy.TimingClose && t != cfg.EntryTime {
					pending = append(pending, a)
					continue
				}

				series, err := e.Cache.Leg(ctx, date, expiry, a.Strike, a.Type)
				if err != nil {
					return nil, issues, errors.NewDataError("ENTRY", string(a.Type), a.Strike, dateKey,
						fmt.Sprintf("no option data at %s", t), err)
				}
				candle, actual, warn, ok := e.safeCandle(series, t)
				if !ok {
					return nil, issues, errors.NewDataError("ENTRY", string(a.Type), a.Strike, dateKey,
						fmt.Sprintf("no candle at %s", t), nil)
				}
				if warn != "" {
					issue(models.IssueWarning, "ENTRY", a.Strike, a.Type, t.String(), actual.String(), warn)
				}
				addLeg(a.LegID, &openLeg{
					intent:     a,
					entryPrice: candle.Open,
					entryTime:  actual,
					series:     series,
				})

			case models.IntentExit:
				leg, ok := book[a.LegID]
				if !ok {
					issue(models.IssueError, "EXIT", 0, "", t.String(), "N/A",
						errors.NewStrategyError(strat.Name(), a.LegID, "exit for unknown leg").Error())
					continue
				}
				dropLeg(a.LegID)

				candle, actual, warn, ok := e.safeCandle(leg.series, t)
				if !ok {
					return nil, issues, errors.NewDataError("EXIT", string(leg.intent.Type), leg.intent.Strike, dateKey,
						fmt.Sprintf("no candle at %s", t), nil)
				}
				if warn != "" {
					issue(models.IssueWarning, "EXIT", leg.intent.Strike, leg.intent.Type,
						t.String(), actual.String(), warn)
				}

				exitPrice := candle.Close
				if conv == strategy.TimingOpen {
					exitPrice = candle.Open
				}
				closeLeg(leg, exitPrice, actual, a.Reason, models.Float(indexPrice))
			}
		}

		if e.Tracker != nil && len(book) > 0 {
			e.Tracker.Record(t, bookOrder, book)
		}
	}

	// Close whatever the strategy left open. The snapshot minute is one
	// before the configured exit so the ledger lines up with the minute
	// PnL series.
	eod := cfg.ExitTime - 1
	eodIndex := eodIndexPrice(indexCandles, eod)

	for _, legID := range bookOrder {
		leg := book[legID]

		candle, actual, warn, ok := e.safeCandle(leg.series, eod)
		if !ok {
			issue(models.IssueWarning, "EOD_EXIT", leg.intent.Strike, leg.intent.Type,
				eod.String(), "N/A", "no candle for end-of-day exit, leg skipped")
			continue
		}
		if warn != "" {
			issue(models.IssueWarning, "EOD_EXIT", leg.intent.Strike, leg.intent.Type,
				eod.String(), actual.String(), warn)
		}

		exitPrice := candle.Close
		if conv == strategy.TimingOpen {
			exitPrice = candle.Open
		}
		closeLeg(leg, exitPrice, actual, models.ExitEndOfDay, eodIndex)
	}
	book = map[string]*openLeg{}
	bookOrder = nil

	strat.OnDayEnd()

	sortTrades(trades)
	return trades, issues, nil
}

// eodIndexPrice resolves the index close for the snapshot minute,
// degrading to the day's last candle.
func eodIndexPrice(candles []models.Candle, eod models.TimeOfDay) *float64 {
	for _, c := range candles {
		if c.Minute() == eod {
			return models.Float(c.Close)
		}
	}
	if len(candles) > 0 {
		return models.Float(candles[len(candles)-1].Close)
	}
	return nil
}

// sortTrades orders the ledger by date, then entry time, then type.
func sortTrades(trades []models.TradeRecord) {
	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].Date != trades[j].Date {
			return trades[i].Date < trades[j].Date
		}
		if trades[i].EntryTime != trades[j].EntryTime {
			return trades[i].EntryTime < trades[j].EntryTime
		}
		return trades[i].Type < trades[j].Type
	})
}

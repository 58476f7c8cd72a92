package engine

import (
	"fmt"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/models"
	"intraday-backtester/internal/store"
)

// LegResolution is the settled lifecycle of one fixed-strike leg.
type LegResolution struct {
	IntendedEntryTime models.TimeOfDay
	EntryTime         models.TimeOfDay
	EntryPrice        float64
	EntryDelayed      bool
	EntryDelayMinutes int

	ExitTime   models.TimeOfDay
	ExitPrice  float64
	ExitReason models.ExitReason
	SLPrice    float64

	Qty int
	PnL float64
}

// ResolveLeg walks one option's candles from entry to exit, watching for
// a stop-loss breach. Entry fills at the Open of the first candle at or
// after the intended time. A short's stop sits above entry and triggers
// on High; a long's sits below and triggers on Low. Without a breach the
// leg exits at the Close of the last candle at or before exit time.
func ResolveLeg(series *store.LegSeries, entryTime, exitTime models.TimeOfDay, slPct float64, side models.Side) (LegResolution, error) {
	if series.Len() == 0 {
		return LegResolution{}, errors.NewDataError("ENTRY", string(series.Identity.Type), series.Identity.Strike,
			models.DateKey(series.Identity.TradeDate), "empty option series", nil)
	}

	entryCandle, ok := series.FirstAtOrAfter(entryTime)
	if !ok {
		return LegResolution{}, errors.NewDataError("ENTRY", string(series.Identity.Type), series.Identity.Strike,
			models.DateKey(series.Identity.TradeDate),
			fmt.Sprintf("no candles at or after %s", entryTime), nil)
	}

	actualEntry := entryCandle.Minute()
	entryPrice := entryCandle.Open
	delayed := actualEntry != entryTime

	res := LegResolution{
		IntendedEntryTime: entryTime,
		EntryTime:         actualEntry,
		EntryPrice:        entryPrice,
		EntryDelayed:      delayed,
		Qty:               int(side),
		ExitReason:        models.ExitTime,
	}
	if delayed {
		res.EntryDelayMinutes = actualEntry.Sub(entryTime)
	}

	var breached func(models.Candle) bool
	if side == models.SideShort {
		res.SLPrice = entryPrice * (1 + slPct)
		breached = func(c models.Candle) bool { return c.High >= res.SLPrice }
	} else {
		res.SLPrice = entryPrice * (1 - slPct)
		breached = func(c models.Candle) bool { return c.Low <= res.SLPrice }
	}

	exited := false
	for _, c := range series.Candles {
		t := c.Minute()
		if t < actualEntry {
			continue
		}
		if t > exitTime {
			break
		}
		if breached(c) {
			if side == models.SideShort {
				res.ExitPrice = c.High
			} else {
				res.ExitPrice = c.Low
			}
			res.ExitTime = t
			res.ExitReason = models.ExitStopLoss
			exited = true
			break
		}
	}

	if !exited {
		last, ok := series.LastAtOrBefore(exitTime)
		if !ok {
			return LegResolution{}, errors.NewDataError("EXIT", string(series.Identity.Type), series.Identity.Strike,
				models.DateKey(series.Identity.TradeDate),
				fmt.Sprintf("no candle at or before %s", exitTime), nil)
		}
		res.ExitPrice = last.Close
		res.ExitTime = last.Minute()
	}

	res.PnL = (res.ExitPrice - res.EntryPrice) * float64(side)
	return res, nil
}

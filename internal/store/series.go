// Package store provides indexed access to the historical candle archive.
package store

import (
	"fmt"
	"sort"
	"time"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/models"
)

// LegSeries is one option's candles for one trading day, indexed by
// intraday minute for O(1) exact-time lookups.
type LegSeries struct {
	Identity models.OptionIdentity
	Candles  []models.Candle
	byMinute map[models.TimeOfDay]int
}

// NewLegSeries builds a series from candles, sorting them by timestamp.
func NewLegSeries(id models.OptionIdentity, candles []models.Candle) *LegSeries {
	sorted := make([]models.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	byMinute := make(map[models.TimeOfDay]int, len(sorted))
	for i, c := range sorted {
		byMinute[c.Minute()] = i
	}

	return &LegSeries{
		Identity: id,
		Candles:  sorted,
		byMinute: byMinute,
	}
}

// Len returns the number of candles.
func (s *LegSeries) Len() int {
	return len(s.Candles)
}

// At returns the candle at exactly the given minute.
func (s *LegSeries) At(t models.TimeOfDay) (models.Candle, bool) {
	i, ok := s.byMinute[t]
	if !ok {
		return models.Candle{}, false
	}
	return s.Candles[i], true
}

// CloseAt returns the close price at exactly the given minute. Absence is
// not an error; callers decide whether a miss is fatal.
func (s *LegSeries) CloseAt(t models.TimeOfDay) (float64, bool) {
	c, ok := s.At(t)
	if !ok {
		return 0, false
	}
	return c.Close, true
}

// LastAtOrBefore returns the latest candle at or before the given minute.
func (s *LegSeries) LastAtOrBefore(t models.TimeOfDay) (models.Candle, bool) {
	// First candle strictly after t; the one before it is the answer.
	i := sort.Search(len(s.Candles), func(i int) bool {
		return s.Candles[i].Minute() > t
	})
	if i == 0 {
		return models.Candle{}, false
	}
	return s.Candles[i-1], true
}

// FirstAtOrAfter returns the earliest candle at or after the given minute.
func (s *LegSeries) FirstAtOrAfter(t models.TimeOfDay) (models.Candle, bool) {
	i := sort.Search(len(s.Candles), func(i int) bool {
		return s.Candles[i].Minute() >= t
	})
	if i == len(s.Candles) {
		return models.Candle{}, false
	}
	return s.Candles[i], true
}

// Nearest returns the candle whose minute is closest to the given minute.
func (s *LegSeries) Nearest(t models.TimeOfDay) (models.Candle, bool) {
	if len(s.Candles) == 0 {
		return models.Candle{}, false
	}
	best := 0
	bestDist := s.Candles[0].Minute().Abs(t)
	for i := 1; i < len(s.Candles); i++ {
		if d := s.Candles[i].Minute().Abs(t); d < bestDist {
			best, bestDist = i, d
		}
	}
	return s.Candles[best], true
}

// Last returns the final candle of the day.
func (s *LegSeries) Last() (models.Candle, bool) {
	if len(s.Candles) == 0 {
		return models.Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// ExpirySeries holds every strike/type's candles for one (trade date,
// expiry) partition, the unit the archive loads and caches.
type ExpirySeries struct {
	TradeDate time.Time
	Expiry    time.Time
	legs      map[legKey][]models.Candle
}

type legKey struct {
	Strike int
	Type   models.OptionType
}

// NewExpirySeries groups raw rows by (strike, type).
func NewExpirySeries(tradeDate, expiry time.Time, rows []OptionRow) *ExpirySeries {
	legs := make(map[legKey][]models.Candle)
	for _, r := range rows {
		k := legKey{Strike: r.Strike, Type: r.Type}
		legs[k] = append(legs[k], r.Candle)
	}
	return &ExpirySeries{TradeDate: tradeDate, Expiry: expiry, legs: legs}
}

// OptionRow is one raw archive row before grouping.
type OptionRow struct {
	Strike int
	Type   models.OptionType
	Candle models.Candle
}

// Empty reports whether the partition yielded no rows.
func (e *ExpirySeries) Empty() bool {
	return len(e.legs) == 0
}

// Strikes returns the distinct strikes present, ascending.
func (e *ExpirySeries) Strikes() []int {
	seen := make(map[int]bool)
	for k := range e.legs {
		seen[k.Strike] = true
	}
	out := make([]int, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// Leg filters the series down to one strike/type and builds its minute
// index. Fails with ErrDataNotFound if the filtered series is empty.
func (e *ExpirySeries) Leg(strike int, typ models.OptionType) (*LegSeries, error) {
	candles, ok := e.legs[legKey{Strike: strike, Type: typ}]
	if !ok || len(candles) == 0 {
		return nil, fmt.Errorf("no option data for %s %d expiry %s on %s: %w",
			typ, strike, models.DateKey(e.Expiry), models.DateKey(e.TradeDate), errors.ErrDataNotFound)
	}

	id := models.OptionIdentity{
		TradeDate: e.TradeDate,
		Expiry:    e.Expiry,
		Strike:    strike,
		Type:      typ,
	}
	return NewLegSeries(id, candles), nil
}

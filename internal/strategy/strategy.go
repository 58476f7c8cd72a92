// Package strategy provides the pluggable trading strategies driven by
// the backtest engine.
package strategy

import (
	"fmt"
	"strings"
	"time"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/models"
)

// TimingConvention selects which engine timing variant a strategy was
// designed against. The engine must not mix conventions within one run.
type TimingConvention string

const (
	// TimingOpen is the legacy convention: breach detection on Open,
	// exits on Open, same-candle re-entry.
	TimingOpen TimingConvention = "OPEN"
	// TimingClose is the revised convention: breach detection on Close,
	// exits on Close, re-entry deferred to the next candle's Open.
	TimingClose TimingConvention = "CLOSE"
)

// ParseTimingConvention validates a convention string. Empty selects the
// strategy's own default.
func ParseTimingConvention(s string) (TimingConvention, error) {
	switch c := TimingConvention(strings.ToUpper(s)); c {
	case TimingOpen, TimingClose, "":
		return c, nil
	}
	return "", fmt.Errorf("unknown timing convention %q: %w", s, errors.ErrConfigInvalid)
}

// Config holds a strategy's static parameters.
type Config struct {
	EntryTime   models.TimeOfDay
	ExitTime    models.TimeOfDay
	StopLossPct float64
	StrikeGap   int
}

// NamedStrategy is the surface common to both strategy families.
type NamedStrategy interface {
	Name() string
	Config() Config
}

// Strategy is a day-scoped state machine fed the unfolding index price
// stream, emitting ENTER/EXIT intents for named legs.
type Strategy interface {
	NamedStrategy
	Convention() TimingConvention
	OnDayStart(date time.Time, index string, mc models.MarketContext) error
	OnMinute(ts time.Time, indexPrice float64) []models.Intent
	OnDayEnd()
}

// StaticLeg describes one leg of a fixed-strike strategy.
type StaticLeg struct {
	LegID  string
	Strike int
	Type   models.OptionType
	Side   models.Side
}

// StaticLegStrategy computes all its legs from the entry-time spot and
// lets per-leg execution resolve each lifecycle independently.
type StaticLegStrategy interface {
	NamedStrategy
	Legs(spot float64) []StaticLeg
}

// VolatilitySource resolves the per-day range scalar for range-sizing
// strategies.
type VolatilitySource interface {
	Lookup(date time.Time) (float64, error)
}

// New returns the named strategy. Event-driven strategies implement
// Strategy; leg-based ones implement StaticLegStrategy.
func New(name string, vol VolatilitySource) (NamedStrategy, error) {
	switch name {
	case "itm-straddle":
		return NewITMStraddle(), nil
	case "volatility-straddles":
		return NewVolatilityStraddles(vol), nil
	case "volatility-strangles":
		return NewVolatilityStrangles(vol), nil
	case "dynamic-atm-inventory":
		return NewDynamicATMInventory(), nil
	case "dynamic-atm-100-range":
		return NewDynamicATM100Range(), nil
	case "dynamic-atm-lastlevel-100-range":
		return NewDynamicATMLastLevel100Range(), nil
	default:
		return nil, fmt.Errorf("%q: %w", name, errors.ErrUnknownStrategy)
	}
}

// Names lists the registry names accepted by New.
func Names() []string {
	return []string{
		"itm-straddle",
		"volatility-straddles",
		"volatility-strangles",
		"dynamic-atm-inventory",
		"dynamic-atm-100-range",
		"dynamic-atm-lastlevel-100-range",
	}
}

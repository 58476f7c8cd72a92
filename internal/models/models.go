// Package models provides domain models for the backtesting application.
package models

import (
	"time"
)

// Index represents a tradeable index.
type Index string

const (
	IndexNifty  Index = "NIFTY"
	IndexSensex Index = "SENSEX"
)

// OptionType represents the type of an option contract.
type OptionType string

const (
	OptionCall OptionType = "CE"
	OptionPut  OptionType = "PE"
)

// Valid reports whether the option type is a known contract type.
func (t OptionType) Valid() bool {
	return t == OptionCall || t == OptionPut
}

// Side represents the direction of a position. The sign doubles as the
// quantity multiplier in PnL arithmetic.
type Side int

const (
	SideShort Side = -1
	SideLong  Side = 1
)

// ExitReason identifies why a leg was closed.
type ExitReason string

const (
	ExitStopLoss    ExitReason = "SL_HIT"
	ExitTime        ExitReason = "TIME_EXIT"
	ExitEndOfDay    ExitReason = "EOD"
	ExitDayEnd      ExitReason = "DAY_END"
	ExitUpperBreach ExitReason = "UPPER_BREACH"
	ExitLowerBreach ExitReason = "LOWER_BREACH"
	ExitCallSLHit   ExitReason = "CE_SL_HIT"
	ExitPutSLHit    ExitReason = "PE_SL_HIT"
)

// Candle represents OHLCV data for one minute of one instrument.
// Immutable once loaded from the archive.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Minute returns the candle's intraday minute.
func (c Candle) Minute() TimeOfDay {
	return TimeOfDayOf(c.Timestamp)
}

// OptionIdentity uniquely addresses one option candle series.
type OptionIdentity struct {
	TradeDate time.Time
	Expiry    time.Time
	Strike    int
	Type      OptionType
}

// MarketContext holds per-day calendar metadata resolved for a trading day.
type MarketContext struct {
	WeeklyExpiry  time.Time
	MonthlyExpiry time.Time
	DTEWeekly     int
	Day           string // weekday name, e.g. "Thursday"
}

// DateKey formats a date the way ledgers and cache keys expect it.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

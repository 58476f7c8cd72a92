// Package utils provides shared utility functions.
package utils

import (
	"math"
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// RoundStrike rounds a price to the nearest grid strike.
func RoundStrike(price float64, gap int) int {
	if gap <= 0 {
		gap = 50
	}
	return int(math.Round(price/float64(gap))) * gap
}

// IsTradingWeekday reports whether the date falls on a weekday. Holiday
// handling is the market calendar's job; this only rules out weekends.
func IsTradingWeekday(d time.Time) bool {
	return d.Weekday() != time.Saturday && d.Weekday() != time.Sunday
}

// SameDate reports whether two timestamps fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MonthKey formats a date's year-month partition key, e.g. "2023-08".
func MonthKey(d time.Time) string {
	return d.Format("2006-01")
}

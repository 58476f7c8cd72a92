package models

import (
	"fmt"
	"time"
)

// TimeOfDay is an intraday minute expressed as minutes since midnight.
// Candle data is minute-granular, so this is the natural key for
// per-minute lookups and comparisons.
type TimeOfDay int

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// MustTimeOfDay parses an HH:MM string and panics on failure. For
// compile-time strategy constants only.
func MustTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

// TimeOfDayOf extracts the intraday minute from a timestamp.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// String formats as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Sub returns the difference in minutes.
func (t TimeOfDay) Sub(other TimeOfDay) int {
	return int(t) - int(other)
}

// Abs returns the absolute distance in minutes.
func (t TimeOfDay) Abs(other TimeOfDay) int {
	d := int(t) - int(other)
	if d < 0 {
		return -d
	}
	return d
}

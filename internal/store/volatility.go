package store

import (
	"context"
	"sort"
	"time"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/models"
)

// VolatilityTable resolves the per-day range scalar consumed by
// range-sizing strategies. Lookups fall back to the latest date strictly
// before the requested one when the exact date is absent.
type VolatilityTable struct {
	series string
	values map[string]float64
	dates  []string // ascending, for prior-date fallback
}

// NewVolatilityTable loads one volatility series from the archive.
func NewVolatilityTable(ctx context.Context, a *SQLiteArchive, series string) (*VolatilityTable, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT date, value
		FROM daily_volatility
		WHERE series = ?
		ORDER BY date`,
		series)
	if err != nil {
		return nil, errors.Wrap(err, "querying daily volatility")
	}
	defer rows.Close()

	values := make(map[string]float64)
	var dates []string
	for rows.Next() {
		var (
			date  string
			value float64
		)
		if err := rows.Scan(&date, &value); err != nil {
			return nil, errors.Wrap(err, "scanning volatility row")
		}
		values[date] = value
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &VolatilityTable{series: series, values: values, dates: dates}, nil
}

// Lookup returns the value for the date, or the latest strictly-prior
// date's value. Fails with a ConfigError when no prior date exists.
func (v *VolatilityTable) Lookup(date time.Time) (float64, error) {
	key := models.DateKey(date)
	if val, ok := v.values[key]; ok {
		return val, nil
	}

	// Latest date strictly less than the requested one.
	i := sort.SearchStrings(v.dates, key)
	if i == 0 {
		return 0, errors.NewConfigError("daily_volatility", key, errors.ErrVolatilityMiss)
	}
	return v.values[v.dates[i-1]], nil
}

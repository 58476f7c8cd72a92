package store

import (
	"context"
	"database/sql"
	"time"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/models"
)

// MarketCalendar resolves expiry and day-of-week metadata per trading
// day. Rows are loaded once at construction; lookups never touch the
// database again for the life of the run.
type MarketCalendar struct {
	index string
	days  map[string]models.MarketContext
}

// NewMarketCalendar loads the calendar for one index from the archive.
func NewMarketCalendar(ctx context.Context, a *SQLiteArchive, index string) (*MarketCalendar, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT date, weekly_expiry, monthly_expiry, dte_weekly, day
		FROM market_calendar
		WHERE index_name = ?
		ORDER BY date`,
		index)
	if err != nil {
		return nil, errors.Wrap(err, "querying market calendar")
	}
	defer rows.Close()

	days := make(map[string]models.MarketContext)
	for rows.Next() {
		var (
			date, weekly string
			monthly      sql.NullString
			mc           models.MarketContext
		)
		if err := rows.Scan(&date, &weekly, &monthly, &mc.DTEWeekly, &mc.Day); err != nil {
			return nil, errors.Wrap(err, "scanning calendar row")
		}
		if mc.WeeklyExpiry, err = models.ParseDate(weekly); err != nil {
			return nil, errors.Wrapf(err, "parsing weekly expiry %q", weekly)
		}
		if monthly.Valid {
			if mc.MonthlyExpiry, err = models.ParseDate(monthly.String); err != nil {
				return nil, errors.Wrapf(err, "parsing monthly expiry %q", monthly.String)
			}
		}
		days[date] = mc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &MarketCalendar{index: index, days: days}, nil
}

// Context returns the market context for a trading day. Fails with a
// ConfigError if the date has no calendar row.
func (c *MarketCalendar) Context(date time.Time) (models.MarketContext, error) {
	mc, ok := c.days[models.DateKey(date)]
	if !ok {
		return models.MarketContext{}, errors.NewConfigError("market_calendar", models.DateKey(date), errors.ErrCalendarMiss)
	}
	return mc, nil
}

// Dates returns every calendar date, useful for intersecting with the
// archive's trading dates.
func (c *MarketCalendar) Dates() []string {
	out := make([]string, 0, len(c.days))
	for d := range c.days {
		out = append(out, d)
	}
	return out
}

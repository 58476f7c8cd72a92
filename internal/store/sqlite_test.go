package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/models"
)

func openTestArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	a, err := NewSQLiteArchive(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func minuteCandle(day time.Time, hhmm string, o, h, l, c float64) models.Candle {
	tod := models.MustTimeOfDay(hhmm)
	return models.Candle{
		Timestamp: day.Add(time.Duration(tod) * time.Minute),
		Open:      o, High: h, Low: l, Close: c,
	}
}

func TestIndexRoundTrip(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	day1 := time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2023, 8, 11, 0, 0, 0, 0, time.UTC)

	require.NoError(t, a.SaveIndexCandles(ctx, "NIFTY", []models.Candle{
		minuteCandle(day1, "09:20", 19500, 19510, 19490, 19505),
		minuteCandle(day1, "09:21", 19505, 19515, 19495, 19510),
		minuteCandle(day2, "09:20", 19510, 19520, 19500, 19515),
	}))

	candles, err := a.IndexDay(ctx, "NIFTY", day1)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 19500.0, candles[0].Open)
	assert.Equal(t, models.MustTimeOfDay("09:21"), candles[1].Minute())

	_, err = a.IndexDay(ctx, "NIFTY", day1.AddDate(0, 0, 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataNotFound))

	dates, err := a.TradingDates(ctx, "NIFTY", day1, day2)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, models.DateKey(day1), models.DateKey(dates[0]))
}

func TestOptionExpiryRoundTrip(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	tradeDate := time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC)

	id := models.OptionIdentity{TradeDate: tradeDate, Expiry: expiry, Strike: 19500, Type: models.OptionCall}
	require.NoError(t, a.SaveOptionCandles(ctx, "NIFTY", id, []models.Candle{
		minuteCandle(tradeDate, "09:20", 100, 104, 98, 102),
		minuteCandle(tradeDate, "09:21", 102, 106, 100, 105),
	}))

	series, err := a.LoadExpiry(ctx, "NIFTY", tradeDate, expiry)
	require.NoError(t, err)
	require.False(t, series.Empty())

	leg, err := series.Leg(19500, models.OptionCall)
	require.NoError(t, err)
	require.Equal(t, 2, leg.Len())
	assert.Equal(t, 102.0, leg.Candles[0].Close)

	_, err = a.LoadExpiry(ctx, "NIFTY", tradeDate.AddDate(0, 0, 1), expiry)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataNotFound))
}

func TestCrossMonthPartitionFallback(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	// Trade date in August, expiry in September: data filed under the
	// trade month is still found via the second partition probe.
	tradeDate := time.Date(2023, 8, 31, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2023, 9, 7, 0, 0, 0, 0, time.UTC)

	id := models.OptionIdentity{TradeDate: tradeDate, Expiry: expiry, Strike: 19500, Type: models.OptionPut}
	require.NoError(t, a.SaveOptionCandlesInPartition(ctx, "NIFTY", "2023-08", id, []models.Candle{
		minuteCandle(tradeDate, "09:20", 90, 92, 88, 91),
	}))

	series, err := a.LoadExpiry(ctx, "NIFTY", tradeDate, expiry)
	require.NoError(t, err)

	leg, err := series.Leg(19500, models.OptionPut)
	require.NoError(t, err)
	assert.Equal(t, 91.0, leg.Candles[0].Close)
}

func TestMarketCalendarRoundTrip(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	day := time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, a.SaveCalendarDay(ctx, "NIFTY", day, models.MarketContext{
		WeeklyExpiry: expiry,
		DTEWeekly:    0,
		Day:          "Thursday",
	}))

	cal, err := NewMarketCalendar(ctx, a, "NIFTY")
	require.NoError(t, err)

	mc, err := cal.Context(day)
	require.NoError(t, err)
	assert.Equal(t, "Thursday", mc.Day)
	assert.Equal(t, models.DateKey(expiry), models.DateKey(mc.WeeklyExpiry))
	assert.True(t, mc.MonthlyExpiry.IsZero())

	_, err = cal.Context(day.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCalendarMiss))
}

func TestVolatilityLookupFallsBackToPriorDate(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	d1 := time.Date(2023, 8, 8, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, a.SaveVolatility(ctx, "nifty_range", d1, 85.5))
	require.NoError(t, a.SaveVolatility(ctx, "nifty_range", d2, 92.0))

	vt, err := NewVolatilityTable(ctx, a, "nifty_range")
	require.NoError(t, err)

	v, err := vt.Lookup(d2)
	require.NoError(t, err)
	assert.Equal(t, 92.0, v)

	// Missing date resolves to the latest strictly-prior value.
	v, err = vt.Lookup(d1.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 85.5, v)

	_, err = vt.Lookup(d1.AddDate(0, 0, -1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrVolatilityMiss))
}

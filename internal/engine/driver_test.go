package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/models"
	"intraday-backtester/internal/store"
	"intraday-backtester/internal/strategy"
)

func twoDayArchive() (*fakeArchive, *fakeCalendar) {
	day1 := testDay
	day2 := testDay.AddDate(0, 0, 1)

	ceCandles := func(day time.Time) []models.Candle {
		return []models.Candle{
			candleAt(day, "09:20", 100, 104, 98, 102),
			candleAt(day, "09:21", 102, 106, 100, 105),
			candleAt(day, "09:22", 105, 112, 104, 110),
			candleAt(day, "09:23", 110, 115, 108, 112),
			candleAt(day, "09:24", 112, 118, 110, 116),
		}
	}

	arc := &fakeArchive{
		indexCandles: map[string][]models.Candle{
			models.DateKey(day1): indexCandles(day1),
			models.DateKey(day2): indexCandles(day2),
		},
		options: map[string][]store.OptionRow{
			models.DateKey(day1): optionRows(day1, 19500, ceCandles(day1)),
			models.DateKey(day2): optionRows(day2, 19500, ceCandles(day2)),
		},
		dates: []time.Time{day1, day2},
	}

	// Only day one has a calendar entry; day two fails.
	cal := testCalendar(day1)
	return arc, cal
}

func driverStrategy() *scripted {
	return &scripted{
		conv: strategy.TimingClose,
		cfg: strategy.Config{
			EntryTime: models.MustTimeOfDay("09:20"),
			ExitTime:  models.MustTimeOfDay("09:25"),
		},
		script: map[models.TimeOfDay][]models.Intent{
			models.MustTimeOfDay("09:20"): {
				models.Enter("CE", 19500, models.OptionCall, models.LegMeta{}),
			},
		},
	}
}

func TestDriverContinuesAfterFailedDay(t *testing.T) {
	arc, cal := twoDayArchive()
	eng := newTestEngine(arc, cal)
	d := &Driver{Engine: eng, BatchSize: 1}

	result, err := d.Run(context.Background(), driverStrategy(), testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Days)
	assert.Equal(t, 1, result.FailedDays)
	require.Len(t, result.Trades, 1)

	var dayIssues []models.IssueRecord
	for _, is := range result.Issues {
		if is.Action == "DAY" {
			dayIssues = append(dayIssues, is)
		}
	}
	require.Len(t, dayIssues, 1)
	assert.Equal(t, models.IssueError, dayIssues[0].Type)
	assert.Equal(t, models.DateKey(testDay.AddDate(0, 0, 1)), dayIssues[0].Date)
}

func TestDriverNoTradingDates(t *testing.T) {
	arc, cal := twoDayArchive()
	eng := newTestEngine(arc, cal)
	d := &Driver{Engine: eng}

	_, err := d.Run(context.Background(), driverStrategy(), testDay.AddDate(0, 1, 0), testDay.AddDate(0, 2, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataNotFound))
}

func TestDriverWriteOutputs(t *testing.T) {
	arc, cal := twoDayArchive()
	eng := newTestEngine(arc, cal)
	dir := t.TempDir()
	d := &Driver{Engine: eng, OutputDir: dir}

	strat := driverStrategy()
	result, err := d.Run(context.Background(), strat, testDay, testDay)
	require.NoError(t, err)
	require.NoError(t, d.WriteOutputs(result, strat, testDay, testDay))

	base := "nifty_scripted_20230810_20230810"
	assert.FileExists(t, filepath.Join(dir, base+"_trades.csv"))
	_, err = os.Stat(filepath.Join(dir, base+"_errors.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunFileBase(t *testing.T) {
	from := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "nifty_volatilitystraddles_20230801_20231231",
		runFileBase("NIFTY", "VolatilityStraddles", from, to))
}

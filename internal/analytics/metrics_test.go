package analytics

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intraday-backtester/internal/models"
)

func readSummaryFile(path string) ([]Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []Summary
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func dayTrade(date string, pnl float64) models.TradeRecord {
	return models.TradeRecord{
		Date:       date,
		Index:      "NIFTY",
		EntryTime:  "09:20",
		ExitTime:   "15:19",
		ExitReason: models.ExitEndOfDay,
		Strike:     19500,
		Type:       models.OptionCall,
		Qty:        -1,
		PnL:        pnl,
	}
}

func sampleTrades() []models.TradeRecord {
	return []models.TradeRecord{
		dayTrade("2023-08-01", 100),
		dayTrade("2023-08-02", -50),
		dayTrade("2023-08-03", -30),
		dayTrade("2023-08-04", 200),
		dayTrade("2023-08-07", 10),
		dayTrade("2023-08-08", -20),
	}
}

func TestDailyPnLAggregatesByDate(t *testing.T) {
	trades := []models.TradeRecord{
		dayTrade("2023-08-02", -10),
		dayTrade("2023-08-01", 40),
		dayTrade("2023-08-01", 60),
	}
	dates, daily := DailyPnL(trades)
	require.Equal(t, []string{"2023-08-01", "2023-08-02"}, dates)
	assert.Equal(t, []float64{100, -10}, daily)
}

func TestComputeMetrics(t *testing.T) {
	s, err := Compute("VolatilityStraddles", sampleTrades(), 100000, 1)
	require.NoError(t, err)

	assert.Equal(t, "VolatilityStraddles", s.Strategy)
	assert.Equal(t, "2023-08-01", s.StartDate)
	assert.Equal(t, "2023-08-08", s.EndDate)
	assert.Equal(t, 6, s.TotalDays)
	assert.Equal(t, 6, s.TotalTrades)

	assert.InDelta(t, 210, s.TotalPnL, 1e-9)
	assert.InDelta(t, 35, s.DailyAvgPnL, 1e-9)
	assert.InDelta(t, 50, s.WinRate, 1e-9)
	assert.Equal(t, 3, s.WinningDays)
	assert.Equal(t, 3, s.LosingDays)
	assert.InDelta(t, 310.0/3, s.AvgWin, 1e-9)
	assert.InDelta(t, -100.0/3, s.AvgLoss, 1e-9)
	assert.InDelta(t, 200, s.MaxWin, 1e-9)
	assert.InDelta(t, -50, s.MaxLoss, 1e-9)
	assert.InDelta(t, 3.1, s.ProfitFactor, 1e-9)

	assert.Equal(t, 2, s.MaxWinningStreak)
	assert.Equal(t, 2, s.MaxLosingStreak)
	assert.Equal(t, -1, s.CurrentStreak)

	// Equity path 100, 50, 20, 220, 230, 210: deepest trough is 80 under
	// the 100 peak, regained one day later.
	assert.InDelta(t, 80, s.MaxDrawdown, 1e-9)
	assert.Equal(t, "2023-08-03", s.MaxDrawdownDate)
	assert.InDelta(t, 80.0/230*100, s.MaxDrawdownPct, 1e-9)
	assert.InDelta(t, 50, s.AvgDrawdown, 1e-9)
	assert.Equal(t, 3, s.DrawdownPeriods)
	assert.Equal(t, 1, s.TimeToRecoverDays)

	assert.InDelta(t, 210.0/80, s.CalmarRatio, 1e-9)
	assert.InDelta(t, 210.0/80, s.RecoveryFactor, 1e-9)

	assert.InDelta(t, 50, s.HitRatio, 1e-9)
	assert.InDelta(t, 35, s.AvgTradePnL, 1e-9)
	assert.InDelta(t, 35, s.Expectancy, 1e-9)

	assert.InDelta(t, 0.21, s.TotalReturnPct, 1e-9)
}

func TestComputeScalesByLotSize(t *testing.T) {
	s, err := Compute("x", sampleTrades(), 0, 25)
	require.NoError(t, err)
	assert.InDelta(t, 210*25, s.TotalPnL, 1e-9)
	assert.InDelta(t, -50*25, s.MaxLoss, 1e-9)
	assert.Equal(t, 0.0, s.TotalReturnPct)
}

func TestComputeProfitFactorNoLosses(t *testing.T) {
	trades := []models.TradeRecord{
		dayTrade("2023-08-01", 10),
		dayTrade("2023-08-02", 20),
	}
	s, err := Compute("x", trades, 0, 1)
	require.NoError(t, err)
	assert.True(t, math.IsInf(s.ProfitFactor, 1))
	assert.True(t, math.IsInf(s.CalmarRatio, 1))
	assert.Equal(t, -1, s.TimeToRecoverDays)
	assert.Equal(t, "", s.MaxDrawdownDate)
}

func TestComputeEmptyLedger(t *testing.T) {
	_, err := Compute("x", nil, 0, 1)
	require.Error(t, err)
}

func TestAppendToSummaryFileReplacesMatchingRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy_summary.csv")

	first, err := Compute("A", sampleTrades(), 0, 1)
	require.NoError(t, err)
	require.NoError(t, AppendToSummaryFile(path, first))

	other, err := Compute("B", sampleTrades(), 0, 1)
	require.NoError(t, err)
	require.NoError(t, AppendToSummaryFile(path, other))

	// Same strategy and range replaces in place.
	first.LotSize = 50
	require.NoError(t, AppendToSummaryFile(path, first))

	f, err := readSummaryFile(path)
	require.NoError(t, err)
	require.Len(t, f, 2)
	assert.Equal(t, "A", f[0].Strategy)
	assert.Equal(t, 50, f[0].LotSize)
	assert.Equal(t, "B", f[1].Strategy)
}

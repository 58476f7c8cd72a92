package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intraday-backtester/internal/models"
)

func TestAppendMinutePnLMergesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1min_pnl", "run.csv")

	first := []models.MinutePnLRow{
		{Date: "2023-08-10", Time: "09:21", Strategy: "VolatilityStraddles", PnL: -1.5},
	}
	require.NoError(t, AppendMinutePnL(path, first))

	second := []models.MinutePnLRow{
		{Date: "2023-08-11", Time: "09:21", Strategy: "VolatilityStraddles", PnL: 2.25},
	}
	require.NoError(t, AppendMinutePnL(path, second))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var merged []models.MinutePnLRow
	require.NoError(t, gocsv.UnmarshalFile(f, &merged))
	require.Len(t, merged, 2)
	assert.Equal(t, "2023-08-10", merged[0].Date)
	assert.Equal(t, 2.25, merged[1].PnL)
}

func TestWriteAndReadTrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")

	trades := []models.TradeRecord{
		{
			Date:       "2023-08-10",
			Index:      "NIFTY",
			Expiry:     "2023-08-10",
			Day:        "Thursday",
			EntryTime:  "09:20",
			EntryPrice: 100,
			ExitTime:   "15:19",
			ExitPrice:  90,
			ExitReason: models.ExitEndOfDay,
			Strike:     19500,
			Type:       models.OptionCall,
			Qty:        -1,
			PnL:        10,
			SLIndex:    models.Float(19600),
		},
	}
	require.NoError(t, WriteTrades(path, trades))

	got, err := ReadTrades(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, trades[0].ExitReason, got[0].ExitReason)
	assert.Equal(t, trades[0].PnL, got[0].PnL)
	require.NotNil(t, got[0].SLIndex)
	assert.Equal(t, 19600.0, *got[0].SLIndex)
	assert.Nil(t, got[0].Volatility)
}

func TestReadTradesMissingFile(t *testing.T) {
	_, err := ReadTrades(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

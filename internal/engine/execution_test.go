package engine

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intraday-backtester/internal/models"
	"intraday-backtester/internal/store"
)

func legSeries(candles ...models.Candle) *store.LegSeries {
	id := models.OptionIdentity{
		TradeDate: testDay,
		Expiry:    testExpiry,
		Strike:    19500,
		Type:      models.OptionCall,
	}
	return store.NewLegSeries(id, candles)
}

func TestResolveLegShortStopLoss(t *testing.T) {
	series := legSeries(
		candleAt(testDay, "09:20", 100, 105, 98, 103),
		candleAt(testDay, "09:21", 103, 108, 101, 106),
		candleAt(testDay, "09:22", 106, 112, 104, 109),
	)

	res, err := ResolveLeg(series, models.MustTimeOfDay("09:20"), models.MustTimeOfDay("15:15"), 0.10, models.SideShort)
	require.NoError(t, err)

	assert.Equal(t, 100.0, res.EntryPrice)
	assert.Equal(t, "09:20", res.EntryTime.String())
	assert.False(t, res.EntryDelayed)
	assert.InDelta(t, 110.0, res.SLPrice, 1e-9)
	// 09:22 High crosses the stop; the fill is the candle High.
	assert.Equal(t, models.ExitStopLoss, res.ExitReason)
	assert.Equal(t, "09:22", res.ExitTime.String())
	assert.Equal(t, 112.0, res.ExitPrice)
	assert.Equal(t, -1, res.Qty)
	assert.InDelta(t, -12.0, res.PnL, 1e-9)
}

func TestResolveLegLongStopLoss(t *testing.T) {
	series := legSeries(
		candleAt(testDay, "09:20", 100, 102, 99, 101),
		candleAt(testDay, "09:21", 101, 103, 88, 95),
	)

	res, err := ResolveLeg(series, models.MustTimeOfDay("09:20"), models.MustTimeOfDay("15:15"), 0.10, models.SideLong)
	require.NoError(t, err)

	assert.InDelta(t, 90.0, res.SLPrice, 1e-9)
	assert.Equal(t, models.ExitStopLoss, res.ExitReason)
	assert.Equal(t, 88.0, res.ExitPrice)
	assert.Equal(t, 1, res.Qty)
	assert.InDelta(t, -12.0, res.PnL, 1e-9)
}

func TestResolveLegTimeExit(t *testing.T) {
	series := legSeries(
		candleAt(testDay, "09:20", 100, 104, 98, 102),
		candleAt(testDay, "10:00", 102, 105, 100, 101),
		candleAt(testDay, "15:20", 101, 103, 99, 100),
	)

	res, err := ResolveLeg(series, models.MustTimeOfDay("09:20"), models.MustTimeOfDay("15:15"), 0.50, models.SideShort)
	require.NoError(t, err)

	assert.Equal(t, models.ExitTime, res.ExitReason)
	// Candles past the exit time are ignored.
	assert.Equal(t, "10:00", res.ExitTime.String())
	assert.Equal(t, 101.0, res.ExitPrice)
	assert.InDelta(t, -1.0, res.PnL, 1e-9)
}

func TestResolveLegDelayedEntry(t *testing.T) {
	series := legSeries(
		candleAt(testDay, "09:23", 100, 101, 99, 100),
		candleAt(testDay, "09:24", 100, 102, 98, 101),
	)

	res, err := ResolveLeg(series, models.MustTimeOfDay("09:20"), models.MustTimeOfDay("15:15"), 0.40, models.SideShort)
	require.NoError(t, err)

	assert.True(t, res.EntryDelayed)
	assert.Equal(t, 3, res.EntryDelayMinutes)
	assert.Equal(t, "09:23", res.EntryTime.String())
	assert.Equal(t, "09:20", res.IntendedEntryTime.String())
}

func TestResolveLegEmptySeries(t *testing.T) {
	_, err := ResolveLeg(legSeries(), models.MustTimeOfDay("09:20"), models.MustTimeOfDay("15:15"), 0.40, models.SideShort)
	require.Error(t, err)
}

func TestResolveLegNoCandleBeforeExit(t *testing.T) {
	series := legSeries(
		candleAt(testDay, "15:25", 100, 101, 99, 100),
	)
	_, err := ResolveLeg(series, models.MustTimeOfDay("09:20"), models.MustTimeOfDay("15:15"), 0.40, models.SideShort)
	require.Error(t, err)
}

func TestResolveLegPnLProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("pnl is signed move from entry to exit", prop.ForAll(
		func(entry, move, slPct float64, short bool) bool {
			side := models.SideLong
			if short {
				side = models.SideShort
			}
			final := entry + move
			high := entry
			low := entry
			if final > high {
				high = final
			}
			if final < low {
				low = final
			}

			series := legSeries(
				candleAt(testDay, "09:20", entry, entry, entry, entry),
				candleAt(testDay, "10:00", entry, high, low, final),
			)
			res, err := ResolveLeg(series, models.MustTimeOfDay("09:20"), models.MustTimeOfDay("15:15"), slPct, side)
			if err != nil {
				return false
			}
			if res.PnL != (res.ExitPrice-res.EntryPrice)*float64(res.Qty) {
				return false
			}
			switch res.ExitReason {
			case models.ExitStopLoss:
				if side == models.SideShort {
					return res.ExitPrice == high
				}
				return res.ExitPrice == low
			case models.ExitTime:
				return res.ExitPrice == final
			}
			return false
		},
		gen.Float64Range(10, 500),
		gen.Float64Range(-50, 50),
		gen.Float64Range(0.05, 0.9),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

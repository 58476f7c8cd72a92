package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intraday-backtester/internal/models"
)

func TestVolatilityStraddlesInitialEntry(t *testing.T) {
	s := NewVolatilityStraddles(fixedVol{v: 100})
	require.NoError(t, s.OnDayStart(stratDay, "NIFTY", models.MarketContext{Day: "Monday"}))

	actions := s.OnMinute(minuteTS("09:20"), 19500)
	enters, exits := splitIntents(actions)
	require.Len(t, enters, 2)
	assert.Empty(t, exits)

	ce, pe := enters[0], enters[1]
	assert.Equal(t, models.OptionCall, ce.Type)
	assert.Equal(t, 19500, ce.Strike)
	require.NotNil(t, ce.Meta.SLIndex)
	assert.Equal(t, 19600.0, *ce.Meta.SLIndex)

	assert.Equal(t, models.OptionPut, pe.Type)
	assert.Equal(t, 19500, pe.Strike)
	require.NotNil(t, pe.Meta.SLIndex)
	assert.Equal(t, 19400.0, *pe.Meta.SLIndex)

	// A quiet minute produces nothing.
	assert.Empty(t, s.OnMinute(minuteTS("09:21"), 19550))
}

func TestVolatilityStraddlesBreachReplacesLeg(t *testing.T) {
	s := NewVolatilityStraddles(fixedVol{v: 100})
	require.NoError(t, s.OnDayStart(stratDay, "NIFTY", models.MarketContext{Day: "Monday"}))
	s.OnMinute(minuteTS("09:20"), 19500)

	actions := s.OnMinute(minuteTS("09:35"), 19650)
	require.Len(t, actions, 2)

	assert.Equal(t, models.IntentExit, actions[0].Kind)
	assert.Equal(t, "L1", actions[0].LegID)
	assert.Equal(t, models.ExitCallSLHit, actions[0].Reason)

	fresh := actions[1]
	assert.Equal(t, models.IntentEnter, fresh.Kind)
	assert.Equal(t, models.OptionCall, fresh.Type)
	assert.Equal(t, 19650, fresh.Strike)
	require.NotNil(t, fresh.Meta.SLIndex)
	assert.Equal(t, 19750.0, *fresh.Meta.SLIndex)
}

func TestVolatilityStraddlesDayEndSweep(t *testing.T) {
	s := NewVolatilityStraddles(fixedVol{v: 100})
	require.NoError(t, s.OnDayStart(stratDay, "NIFTY", models.MarketContext{Day: "Monday"}))
	s.OnMinute(minuteTS("09:20"), 19500)

	actions := s.OnMinute(minuteTS("15:20"), 19500)
	require.Len(t, actions, 2)
	for _, a := range actions {
		assert.Equal(t, models.IntentExit, a.Kind)
		assert.Equal(t, models.ExitDayEnd, a.Reason)
	}
}

func TestVolatilityStranglesInitialEntryRoundsStops(t *testing.T) {
	s := NewVolatilityStrangles(fixedVol{v: 100})
	require.NoError(t, s.OnDayStart(stratDay, "NIFTY", models.MarketContext{Day: "Monday"}))

	enters, _ := splitIntents(s.OnMinute(minuteTS("09:20"), 19520))
	require.Len(t, enters, 2)

	// Strikes come from the stop level, not the spot.
	assert.Equal(t, 19600, enters[0].Strike) // round(19620)
	assert.Equal(t, models.OptionCall, enters[0].Type)
	assert.Equal(t, 19400, enters[1].Strike) // round(19420)
	assert.Equal(t, models.OptionPut, enters[1].Type)
	require.NotNil(t, enters[0].Meta.Upper)
	assert.Equal(t, 19620.0, *enters[0].Meta.Upper)
	require.NotNil(t, enters[1].Meta.Lower)
	assert.Equal(t, 19420.0, *enters[1].Meta.Lower)
}

func TestVolatilityStranglesBreachStepsStopOutward(t *testing.T) {
	s := NewVolatilityStrangles(fixedVol{v: 100})
	require.NoError(t, s.OnDayStart(stratDay, "NIFTY", models.MarketContext{Day: "Monday"}))
	s.OnMinute(minuteTS("09:20"), 19500)

	// CE stop is 19600; 19650 breaches it.
	actions := s.OnMinute(minuteTS("10:00"), 19650)
	require.Len(t, actions, 2)

	assert.Equal(t, models.IntentExit, actions[0].Kind)
	assert.Equal(t, models.ExitCallSLHit, actions[0].Reason)

	stepped := actions[1]
	assert.Equal(t, models.IntentEnter, stepped.Kind)
	assert.Equal(t, models.OptionCall, stepped.Type)
	// New stop is the old stop plus one range, and the strike follows it.
	require.NotNil(t, stepped.Meta.SLBeforeRound)
	assert.Equal(t, 19700.0, *stepped.Meta.SLBeforeRound)
	assert.Equal(t, 19700, stepped.Strike)
}

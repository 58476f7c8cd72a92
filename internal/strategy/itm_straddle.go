package strategy

import (
	"intraday-backtester/internal/models"
	"intraday-backtester/pkg/utils"
)

// ITMStraddle sells an ITM call (one gap below ATM) and an ITM put (one
// gap above ATM), both resolved leg-by-leg with a 40% stop-loss.
type ITMStraddle struct{}

// NewITMStraddle creates the strategy.
func NewITMStraddle() *ITMStraddle {
	return &ITMStraddle{}
}

func (s *ITMStraddle) Name() string {
	return "ITMStraddle"
}

func (s *ITMStraddle) Config() Config {
	return Config{
		EntryTime:   models.MustTimeOfDay("09:20"),
		ExitTime:    models.MustTimeOfDay("15:15"),
		StopLossPct: 0.40,
		StrikeGap:   100,
	}
}

// Legs returns the sold ITM call and put for the given spot.
func (s *ITMStraddle) Legs(spot float64) []StaticLeg {
	gap := s.Config().StrikeGap
	atm := utils.RoundStrike(spot, gap)
	return []StaticLeg{
		{LegID: "CE", Strike: atm - gap, Type: models.OptionCall, Side: models.SideShort},
		{LegID: "PE", Strike: atm + gap, Type: models.OptionPut, Side: models.SideShort},
	}
}

package strategy

import (
	"time"

	"intraday-backtester/internal/models"
	"intraday-backtester/pkg/utils"
)

// DynamicATMLastLevel100Range is the 100-point-range inventory variant
// whose breach iteration inspects only the latest straddle's legs. Older
// levels stay open until the day ends even if the index moves back
// through them; this is deliberately different behavior from
// DynamicATM100Range, not a merged bug fix.
type DynamicATMLastLevel100Range struct {
	state inventoryState
}

// NewDynamicATMLastLevel100Range creates the strategy.
func NewDynamicATMLastLevel100Range() *DynamicATMLastLevel100Range {
	return &DynamicATMLastLevel100Range{}
}

func (s *DynamicATMLastLevel100Range) Name() string {
	return "DynamicATMLastLevelCheck100Range"
}

func (s *DynamicATMLastLevel100Range) Config() Config {
	return Config{
		EntryTime: models.MustTimeOfDay("09:20"),
		ExitTime:  models.MustTimeOfDay("15:20"),
		StrikeGap: 50,
	}
}

func (s *DynamicATMLastLevel100Range) Convention() TimingConvention {
	return TimingOpen
}

func (s *DynamicATMLastLevel100Range) OnDayStart(date time.Time, index string, mc models.MarketContext) error {
	s.state.reset()
	s.state.rangeUsed = 100
	return nil
}

func (s *DynamicATMLastLevel100Range) OnMinute(ts time.Time, indexPrice float64) []models.Intent {
	var actions []models.Intent
	st := &s.state

	// Initial entry
	if len(st.straddles) == 0 && models.TimeOfDayOf(ts) >= s.Config().EntryTime {
		atm := utils.RoundStrike(indexPrice, s.Config().StrikeGap)
		return s.addStraddleAtStrike(atm, indexPrice)
	}

	for iteration := 0; iteration < breachIterationCap && len(st.straddles) > 0; iteration++ {
		latest := st.straddles[len(st.straddles)-1]

		// Step A: exit breached legs belonging to the latest straddle only.
		var exited []string
		breachedLevels := make(map[float64]bool)

		for _, leg := range st.legs {
			if leg.straddleID != latest.straddleID {
				continue
			}
			if leg.typ == models.OptionCall && indexPrice > leg.upper {
				actions = append(actions, models.Exit(leg.legID, models.ExitUpperBreach))
				exited = append(exited, leg.legID)
				breachedLevels[leg.upper] = true
			} else if leg.typ == models.OptionPut && indexPrice < leg.lower {
				actions = append(actions, models.Exit(leg.legID, models.ExitLowerBreach))
				exited = append(exited, leg.legID)
				breachedLevels[leg.lower] = true
			}
		}
		for _, id := range exited {
			st.removeLeg(id)
		}

		// Step B: open straddles at the breached band levels.
		var entries []models.Intent
		for level := range breachedLevels {
			atm := utils.RoundStrike(level, s.Config().StrikeGap)
			entries = append(entries, s.addStraddleAtStrike(atm, indexPrice)...)
		}
		actions = append(actions, entries...)

		if len(entries) == 0 {
			break
		}
	}

	return actions
}

func (s *DynamicATMLastLevel100Range) OnDayEnd() {}

func (s *DynamicATMLastLevel100Range) addStraddleAtStrike(atm int, indexPrice float64) []models.Intent {
	r := s.state.rangeUsed
	return s.state.addStraddle(atm, indexPrice, float64(atm)+r, float64(atm)-r)
}

package strategy

import (
	"time"

	"intraday-backtester/internal/models"
	"intraday-backtester/pkg/utils"
)

// breachIterationCap bounds the iterative breach-resolution loop in the
// 100-range strategies so a gap through many levels cannot spin forever.
const breachIterationCap = 20

// DynamicATM100Range is the inventory strategy with a fixed 100-point
// range. Breach handling is iterative: after exiting breached legs it
// opens straddles at each breached band level, then re-checks, until a
// pass adds nothing. A processed-level set prevents re-entering an ATM
// level twice in a day.
type DynamicATM100Range struct {
	state           inventoryState
	processedLevels map[int]bool
}

// NewDynamicATM100Range creates the strategy.
func NewDynamicATM100Range() *DynamicATM100Range {
	return &DynamicATM100Range{}
}

func (s *DynamicATM100Range) Name() string {
	return "DynamicATM100Range"
}

func (s *DynamicATM100Range) Config() Config {
	return Config{
		EntryTime: models.MustTimeOfDay("09:20"),
		ExitTime:  models.MustTimeOfDay("15:20"),
		StrikeGap: 50,
	}
}

func (s *DynamicATM100Range) Convention() TimingConvention {
	return TimingOpen
}

func (s *DynamicATM100Range) OnDayStart(date time.Time, index string, mc models.MarketContext) error {
	s.state.reset()
	s.state.rangeUsed = 100
	s.processedLevels = make(map[int]bool)
	return nil
}

func (s *DynamicATM100Range) OnMinute(ts time.Time, indexPrice float64) []models.Intent {
	var actions []models.Intent
	st := &s.state

	// Initial entry
	if len(st.straddles) == 0 && models.TimeOfDayOf(ts) >= s.Config().EntryTime {
		atm := utils.RoundStrike(indexPrice, s.Config().StrikeGap)
		return s.addStraddleAtStrike(atm, indexPrice)
	}

	for iteration := 0; iteration < breachIterationCap; iteration++ {
		// Step A: exit all breached legs, remembering which band levels
		// were crossed.
		var exited []string
		breachedLevels := make(map[float64]bool)

		for _, leg := range st.legs {
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

		// Step B: open straddles at breached levels not yet processed.
		var entries []models.Intent
		for level := range breachedLevels {
			atm := utils.RoundStrike(level, s.Config().StrikeGap)
			if s.processedLevels[atm] {
				continue
			}
			entries = append(entries, s.addStraddleAtStrike(atm, indexPrice)...)
		}
		actions = append(actions, entries...)

		if len(entries) == 0 {
			break
		}
	}

	return actions
}

func (s *DynamicATM100Range) OnDayEnd() {}

func (s *DynamicATM100Range) addStraddleAtStrike(atm int, indexPrice float64) []models.Intent {
	s.processedLevels[atm] = true
	r := s.state.rangeUsed
	return s.state.addStraddle(atm, indexPrice, float64(atm)+r, float64(atm)-r)
}

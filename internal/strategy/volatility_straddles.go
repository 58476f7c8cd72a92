package strategy

import (
	"fmt"
	"time"

	"intraday-backtester/internal/models"
	"intraday-backtester/pkg/utils"
)

// VolatilityStraddles sells an ATM straddle at entry and keeps index-level
// stops one volatility-range away on each side. When a side's stop is
// breached that leg is exited and a fresh ATM leg of the same type is
// sold with a stop re-based on the current index price. At most two legs
// are open at any time.
type VolatilityStraddles struct {
	vol VolatilitySource

	tradeDate        time.Time
	legs             []volLeg
	legSeq           int
	initialIndexOpen *float64
	volatility       float64
}

type volLeg struct {
	legID         string
	typ           models.OptionType
	strike        int
	slIndex       float64
	slBeforeRound float64 // strangles only; straddles leave it equal to slIndex
}

// NewVolatilityStraddles creates the strategy backed by a volatility table.
func NewVolatilityStraddles(vol VolatilitySource) *VolatilityStraddles {
	return &VolatilityStraddles{vol: vol}
}

func (s *VolatilityStraddles) Name() string {
	return "VolatilityStraddles"
}

func (s *VolatilityStraddles) Config() Config {
	return Config{
		EntryTime: models.MustTimeOfDay("09:20"),
		ExitTime:  models.MustTimeOfDay("15:20"),
		StrikeGap: 50,
	}
}

func (s *VolatilityStraddles) Convention() TimingConvention {
	return TimingClose
}

func (s *VolatilityStraddles) OnDayStart(date time.Time, index string, mc models.MarketContext) error {
	s.tradeDate = date
	s.legs = nil
	s.legSeq = 0
	s.initialIndexOpen = nil

	v, err := s.vol.Lookup(date)
	if err != nil {
		return err
	}
	s.volatility = v
	return nil
}

func (s *VolatilityStraddles) OnMinute(ts time.Time, indexPrice float64) []models.Intent {
	var actions []models.Intent
	candleTime := models.TimeOfDayOf(ts)
	cfg := s.Config()

	// End-of-day sweep, in case the engine feeds past the exit time.
	if candleTime >= cfg.ExitTime && len(s.legs) > 0 {
		for _, leg := range s.legs {
			actions = append(actions, models.Exit(leg.legID, models.ExitDayEnd))
		}
		s.legs = nil
		return actions
	}

	// Initial entry
	if len(s.legs) == 0 && candleTime >= cfg.EntryTime {
		if s.initialIndexOpen == nil {
			p := indexPrice
			s.initialIndexOpen = &p
		}
		return s.initialStraddle(*s.initialIndexOpen)
	}

	// Breach checks; one replacement per candle.
	for i, leg := range s.legs {
		if leg.typ == models.OptionCall && indexPrice > leg.slIndex {
			actions = append(actions, models.Exit(leg.legID, models.ExitCallSLHit))
			s.legs = append(s.legs[:i], s.legs[i+1:]...)
			actions = append(actions, s.freshATMLeg(models.OptionCall, indexPrice)...)
			break
		}
		if leg.typ == models.OptionPut && indexPrice < leg.slIndex {
			actions = append(actions, models.Exit(leg.legID, models.ExitPutSLHit))
			s.legs = append(s.legs[:i], s.legs[i+1:]...)
			actions = append(actions, s.freshATMLeg(models.OptionPut, indexPrice)...)
			break
		}
	}

	return actions
}

func (s *VolatilityStraddles) OnDayEnd() {}

func (s *VolatilityStraddles) initialStraddle(indexPrice float64) []models.Intent {
	atm := utils.RoundStrike(indexPrice, s.Config().StrikeGap)

	var actions []models.Intent
	actions = append(actions, s.newLeg(models.OptionCall, atm, indexPrice, indexPrice+s.volatility))
	actions = append(actions, s.newLeg(models.OptionPut, atm, indexPrice, indexPrice-s.volatility))
	return actions
}

func (s *VolatilityStraddles) freshATMLeg(typ models.OptionType, indexPrice float64) []models.Intent {
	atm := utils.RoundStrike(indexPrice, s.Config().StrikeGap)

	sl := indexPrice + s.volatility
	if typ == models.OptionPut {
		sl = indexPrice - s.volatility
	}
	return []models.Intent{s.newLeg(typ, atm, indexPrice, sl)}
}

func (s *VolatilityStraddles) newLeg(typ models.OptionType, strike int, indexPrice, slIndex float64) models.Intent {
	s.legSeq++
	legID := fmt.Sprintf("L%d", s.legSeq)

	s.legs = append(s.legs, volLeg{
		legID:   legID,
		typ:     typ,
		strike:  strike,
		slIndex: slIndex,
	})

	return models.Enter(legID, strike, typ, models.LegMeta{
		EntryIndexPrice: models.Float(indexPrice),
		SLIndex:         models.Float(slIndex),
		Volatility:      models.Float(s.volatility),
		RangeUsed:       models.Float(s.volatility),
	})
}

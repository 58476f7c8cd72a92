package strategy

import (
	"fmt"
	"time"

	"intraday-backtester/internal/models"
	"intraday-backtester/pkg/utils"
)

// VolatilityStrangles sells a strangle with strikes at spot plus/minus the
// day's volatility range. A breached leg is exited and replaced by one
// whose stop steps a further volatility-range beyond the old stop, so
// repeated breaches walk the strangle outward.
type VolatilityStrangles struct {
	vol VolatilitySource

	tradeDate        time.Time
	legs             []volLeg
	legSeq           int
	initialIndexOpen *float64
	volatility       float64
}

// NewVolatilityStrangles creates the strategy backed by a volatility table.
func NewVolatilityStrangles(vol VolatilitySource) *VolatilityStrangles {
	return &VolatilityStrangles{vol: vol}
}

func (s *VolatilityStrangles) Name() string {
	return "VolatilityStrangles"
}

func (s *VolatilityStrangles) Config() Config {
	return Config{
		EntryTime: models.MustTimeOfDay("09:20"),
		ExitTime:  models.MustTimeOfDay("15:20"),
		StrikeGap: 50,
	}
}

func (s *VolatilityStrangles) Convention() TimingConvention {
	return TimingClose
}

func (s *VolatilityStrangles) OnDayStart(date time.Time, index string, mc models.MarketContext) error {
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

func (s *VolatilityStrangles) OnMinute(ts time.Time, indexPrice float64) []models.Intent {
	var actions []models.Intent
	candleTime := models.TimeOfDayOf(ts)
	cfg := s.Config()

	// Initial entry
	if len(s.legs) == 0 && candleTime >= cfg.EntryTime {
		if s.initialIndexOpen == nil {
			p := indexPrice
			s.initialIndexOpen = &p
		}
		return s.initialStrangle(*s.initialIndexOpen)
	}

	// Breach checks; every breached leg is exited and replaced this
	// minute, unlike the straddle variant's one-per-candle rule.
	snapshot := s.legs
	exited := make(map[string]bool)
	for _, leg := range snapshot {
		var reason models.ExitReason
		switch {
		case leg.typ == models.OptionCall && indexPrice > leg.slIndex:
			reason = models.ExitCallSLHit
		case leg.typ == models.OptionPut && indexPrice < leg.slIndex:
			reason = models.ExitPutSLHit
		default:
			continue
		}

		exited[leg.legID] = true
		actions = append(actions, models.Exit(leg.legID, reason))
		actions = append(actions, s.steppedLeg(leg, indexPrice))
	}

	if len(exited) > 0 {
		kept := s.legs[:0:0]
		for _, leg := range s.legs {
			if !exited[leg.legID] {
				kept = append(kept, leg)
			}
		}
		s.legs = kept
	}

	return actions
}

func (s *VolatilityStrangles) OnDayEnd() {}

func (s *VolatilityStrangles) initialStrangle(indexPrice float64) []models.Intent {
	var actions []models.Intent

	ceSL := indexPrice + s.volatility
	actions = append(actions, s.newStrangleLeg(models.OptionCall, indexPrice, ceSL))

	peSL := indexPrice - s.volatility
	actions = append(actions, s.newStrangleLeg(models.OptionPut, indexPrice, peSL))

	return actions
}

// steppedLeg replaces a breached leg: the new stop is one volatility-range
// beyond the old stop and the strike is rounded from the new stop.
func (s *VolatilityStrangles) steppedLeg(old volLeg, indexPrice float64) models.Intent {
	newSL := old.slIndex + s.volatility
	if old.typ == models.OptionPut {
		newSL = old.slIndex - s.volatility
	}
	return s.newStrangleLeg(old.typ, indexPrice, newSL)
}

func (s *VolatilityStrangles) newStrangleLeg(typ models.OptionType, indexPrice, slBeforeRound float64) models.Intent {
	strike := utils.RoundStrike(slBeforeRound, s.Config().StrikeGap)

	s.legSeq++
	legID := fmt.Sprintf("L%d", s.legSeq)

	s.legs = append(s.legs, volLeg{
		legID:         legID,
		typ:           typ,
		strike:        strike,
		slIndex:       slBeforeRound,
		slBeforeRound: slBeforeRound,
	})

	meta := models.LegMeta{
		EntryIndexPrice: models.Float(indexPrice),
		SLIndex:         models.Float(slBeforeRound),
		SLBeforeRound:   models.Float(slBeforeRound),
		Volatility:      models.Float(s.volatility),
		RangeUsed:       models.Float(s.volatility),
	}
	if typ == models.OptionCall {
		meta.Upper = models.Float(slBeforeRound)
	} else {
		meta.Lower = models.Float(slBeforeRound)
	}

	return models.Enter(legID, strike, typ, meta)
}

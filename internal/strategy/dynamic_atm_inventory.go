package strategy

import (
	"fmt"
	"strings"
	"time"

	"intraday-backtester/internal/models"
	"intraday-backtester/pkg/utils"
)

// Weekday range tables for the inventory strategies. NSE moved the NIFTY
// weekly expiry day in late August 2025, which shifts which session of
// the expiry week each weekday is.
const expiryChangeDate = "2025-08-28"

var (
	rangeBeforeExpiryChange = map[string]float64{
		"FRIDAY":    85.3,
		"MONDAY":    77.4,
		"TUESDAY":   128,
		"WEDNESDAY": 83.8,
		"THURSDAY":  79.9,
	}
	rangeAfterExpiryChange = map[string]float64{
		"WEDNESDAY": 85.3,
		"THURSDAY":  77.4,
		"FRIDAY":    128,
		"MONDAY":    83.8,
		"TUESDAY":   79.9,
	}
)

func weekdayRange(tradeDate time.Time, day string) (float64, bool) {
	table := rangeBeforeExpiryChange
	if models.DateKey(tradeDate) >= expiryChangeDate {
		table = rangeAfterExpiryChange
	}
	r, ok := table[strings.ToUpper(day)]
	return r, ok
}

// invLeg is one open leg of an inventory-style strategy.
type invLeg struct {
	legID      string
	straddleID string
	typ        models.OptionType
	strike     int
	refPrice   float64
	upper      float64
	lower      float64
}

// invLevel is one straddle level: the price it was anchored at and its
// breach bands.
type invLevel struct {
	straddleID string
	atm        int
	refPrice   float64
	upper      float64
	lower      float64
}

// inventoryState is the book shared by the inventory strategy family.
type inventoryState struct {
	legs        []invLeg
	straddles   []invLevel
	legSeq      int
	straddleSeq int
	rangeUsed   float64
}

func (st *inventoryState) reset() {
	st.legs = nil
	st.straddles = nil
	st.legSeq = 0
	st.straddleSeq = 0
}

// addStraddle opens a CE+PE pair at the given ATM strike with bands
// around the band anchor.
func (st *inventoryState) addStraddle(atm int, refPrice, upper, lower float64) []models.Intent {
	st.straddleSeq++
	straddleID := fmt.Sprintf("S%d", st.straddleSeq)

	st.straddles = append(st.straddles, invLevel{
		straddleID: straddleID,
		atm:        atm,
		refPrice:   refPrice,
		upper:      upper,
		lower:      lower,
	})

	var actions []models.Intent
	for _, typ := range []models.OptionType{models.OptionCall, models.OptionPut} {
		st.legSeq++
		legID := fmt.Sprintf("L%d", st.legSeq)

		st.legs = append(st.legs, invLeg{
			legID:      legID,
			straddleID: straddleID,
			typ:        typ,
			strike:     atm,
			refPrice:   refPrice,
			upper:      upper,
			lower:      lower,
		})

		actions = append(actions, models.Enter(legID, atm, typ, models.LegMeta{
			RefPrice:  models.Float(refPrice),
			Upper:     models.Float(upper),
			Lower:     models.Float(lower),
			RangeUsed: models.Float(st.rangeUsed),
		}))
	}
	return actions
}

func (st *inventoryState) removeLeg(legID string) {
	for i, leg := range st.legs {
		if leg.legID == legID {
			st.legs = append(st.legs[:i], st.legs[i+1:]...)
			return
		}
	}
}

// DynamicATMInventory keeps a stack of ATM straddle levels sized by a
// per-weekday range. Every minute it exits any breached leg across all
// levels, then adds a new straddle only when the latest level's band is
// breached.
type DynamicATMInventory struct {
	state inventoryState
}

// NewDynamicATMInventory creates the strategy.
func NewDynamicATMInventory() *DynamicATMInventory {
	return &DynamicATMInventory{}
}

func (s *DynamicATMInventory) Name() string {
	return "DynamicATMInventory"
}

func (s *DynamicATMInventory) Config() Config {
	return Config{
		EntryTime: models.MustTimeOfDay("09:20"),
		ExitTime:  models.MustTimeOfDay("15:20"),
		StrikeGap: 50,
	}
}

func (s *DynamicATMInventory) Convention() TimingConvention {
	return TimingOpen
}

func (s *DynamicATMInventory) OnDayStart(date time.Time, index string, mc models.MarketContext) error {
	s.state.reset()

	r, ok := weekdayRange(date, mc.Day)
	if !ok {
		return fmt.Errorf("no range configured for weekday %q", mc.Day)
	}
	s.state.rangeUsed = r
	return nil
}

func (s *DynamicATMInventory) OnMinute(ts time.Time, indexPrice float64) []models.Intent {
	var actions []models.Intent
	st := &s.state

	// Initial entry
	if len(st.straddles) == 0 && models.TimeOfDayOf(ts) >= s.Config().EntryTime {
		return s.addStraddleAt(indexPrice)
	}

	// Step A: exit any breached legs across all levels.
	var exited []string
	for _, leg := range st.legs {
		if leg.typ == models.OptionCall && indexPrice > leg.upper {
			actions = append(actions, models.Exit(leg.legID, models.ExitUpperBreach))
			exited = append(exited, leg.legID)
		} else if leg.typ == models.OptionPut && indexPrice < leg.lower {
			actions = append(actions, models.Exit(leg.legID, models.ExitLowerBreach))
			exited = append(exited, leg.legID)
		}
	}
	for _, id := range exited {
		st.removeLeg(id)
	}

	// Step B: entry decision looks at the latest level only.
	if len(st.straddles) == 0 {
		return actions
	}
	latest := st.straddles[len(st.straddles)-1]
	if indexPrice > latest.upper || indexPrice < latest.lower {
		actions = append(actions, s.addStraddleAt(indexPrice)...)
	}

	return actions
}

func (s *DynamicATMInventory) OnDayEnd() {}

func (s *DynamicATMInventory) addStraddleAt(indexPrice float64) []models.Intent {
	atm := utils.RoundStrike(indexPrice, s.Config().StrikeGap)
	r := s.state.rangeUsed
	return s.state.addStraddle(atm, indexPrice, indexPrice+r, indexPrice-r)
}

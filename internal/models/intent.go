package models

// IntentKind tags a strategy intent as an entry or an exit.
type IntentKind string

const (
	IntentEnter IntentKind = "ENTER"
	IntentExit  IntentKind = "EXIT"
)

// LegMeta carries optional per-leg annotations attached by a strategy at
// entry time. Fields are pointers so unset annotations stay empty in the
// ledger instead of rendering as zeroes.
type LegMeta struct {
	EntryIndexPrice *float64 // index price when the leg was requested
	RefPrice        *float64 // reference price for range strategies
	SLIndex         *float64 // index-level stop for the leg
	SLBeforeRound   *float64 // stop level before strike rounding
	Volatility      *float64 // range value consumed from the volatility table
	Upper           *float64 // upper range bound
	Lower           *float64 // lower range bound
	RangeUsed       *float64 // R used to size the bands
}

// Intent is one strategy decision emitted from OnMinute. ENTER intents
// carry the full option address plus annotations; EXIT intents carry the
// leg id and a reason.
type Intent struct {
	Kind   IntentKind
	LegID  string
	Strike int
	Type   OptionType
	Reason ExitReason
	Meta   LegMeta
}

// Enter builds an ENTER intent.
func Enter(legID string, strike int, typ OptionType, meta LegMeta) Intent {
	return Intent{
		Kind:   IntentEnter,
		LegID:  legID,
		Strike: strike,
		Type:   typ,
		Meta:   meta,
	}
}

// Exit builds an EXIT intent.
func Exit(legID string, reason ExitReason) Intent {
	return Intent{
		Kind:   IntentExit,
		LegID:  legID,
		Reason: reason,
	}
}

// Float returns a pointer to v, for LegMeta annotation fields.
func Float(v float64) *float64 {
	return &v
}

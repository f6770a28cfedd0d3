package domain

// Action is the outcome of one ladder evaluation.
type Action int

const (
	ActionHold Action = iota
	ActionFirstBuy
	ActionRungBuy
	ActionSell
	ActionHoldCapped
	ActionPause
)

const (
	actionStringHold       = "hold"
	actionStringFirstBuy   = "first_buy"
	actionStringRungBuy    = "rung_buy"
	actionStringSell       = "sell"
	actionStringHoldCapped = "hold_capped"
	actionStringPause      = "pause"
)

// String returns the string representation of the action
func (a Action) String() string {
	switch a {
	case ActionHold:
		return actionStringHold
	case ActionFirstBuy:
		return actionStringFirstBuy
	case ActionRungBuy:
		return actionStringRungBuy
	case ActionSell:
		return actionStringSell
	case ActionHoldCapped:
		return actionStringHoldCapped
	case ActionPause:
		return actionStringPause
	default:
		return "unknown"
	}
}

// IsBuy reports whether the action spends native funds.
func (a Action) IsBuy() bool {
	return a == ActionFirstBuy || a == ActionRungBuy
}

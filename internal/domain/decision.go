package domain

import "github.com/shopspring/decimal"

// decision reasons
const (
	ReasonEmptyLadder       = "empty_ladder"
	ReasonSellTriggerHit    = "price_reached_sell_trigger"
	ReasonBuyTriggerHit     = "price_dropped_to_buy_trigger"
	ReasonAboveBuyTrigger   = "price_above_buy_trigger"
	ReasonAboveUpperBand    = "price_above_upper_band"
	ReasonMaxRungsReached   = "max_rungs_reached"
	ReasonPausedForFunds    = "paused_for_funds"
	ReasonThinLiquidity     = "sell_skipped_thin_liquidity"
	ReasonBenignSimulation  = "benign_simulation_error"
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonExecutionFailed   = "execution_failed"
)

// Band is a reading of the volatility band. Available is false during warm-up.
type Band struct {
	Mean      decimal.Decimal
	Lower     decimal.Decimal
	Upper     decimal.Decimal
	Available bool
}

// Decision describes what the ladder wants to do at a price.
type Decision struct {
	Action       Action
	Reason       string
	NativeAmount uint64
	RungIndex    int
	BuyTrigger   decimal.Decimal
	SellTrigger  decimal.Decimal
	AvgCost      decimal.Decimal
}

// Decide evaluates the ladder policy. It does not mutate state.
func Decide(state *LadderState, cfg LadderConfig, price decimal.Decimal, band Band, paused bool) Decision {
	if state.IsEmpty() {
		return Decision{
			Action:       ActionFirstBuy,
			Reason:       ReasonEmptyLadder,
			NativeAmount: cfg.NextRungNative(0),
		}
	}

	k := state.RungIndex()
	d := Decision{
		Action:      ActionHold,
		RungIndex:   k,
		BuyTrigger:  state.BuyTrigger(cfg),
		SellTrigger: state.SellTrigger(cfg),
		AvgCost:     state.AvgCost(),
	}

	if price.GreaterThanOrEqual(d.SellTrigger) {
		d.Action = ActionSell
		d.Reason = ReasonSellTriggerHit
		return d
	}

	capped := cfg.Bounded() && k >= cfg.MaxRungs

	switch {
	case capped:
		d.Action = ActionHoldCapped
		d.Reason = ReasonMaxRungsReached
	case price.GreaterThan(d.BuyTrigger):
		d.Reason = ReasonAboveBuyTrigger
	case cfg.NoBuyZoneEnabled && band.Available && price.GreaterThan(band.Upper):
		d.Reason = ReasonAboveUpperBand
	case paused:
		d.Action = ActionPause
		d.Reason = ReasonPausedForFunds
	default:
		d.Action = ActionRungBuy
		d.Reason = ReasonBuyTriggerHit
		d.NativeAmount = cfg.NextRungNative(k)
	}

	return d
}

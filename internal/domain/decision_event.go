package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DecisionEvent is the audit record of one tick's decision.
type DecisionEvent struct {
	Timestamp    time.Time       `json:"ts"`
	Pair         string          `json:"pair"`
	Action       string          `json:"action"`
	Reason       string          `json:"reason"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	AvgCost      decimal.Decimal `json:"avg_cost,omitempty"`
	BuyTrigger   decimal.Decimal `json:"buy_trigger,omitempty"`
	SellTrigger  decimal.Decimal `json:"sell_trigger,omitempty"`
	RungIndex    int             `json:"rung_index"`
	NativeAmount uint64          `json:"native_amount,omitempty"`
	UpperBand    decimal.Decimal `json:"upper_band,omitempty"`
}

// NewDecisionEvent builds the audit record for d at price.
func NewDecisionEvent(at time.Time, pair string, price decimal.Decimal, d Decision, band Band) DecisionEvent {
	ev := DecisionEvent{
		Timestamp:    at,
		Pair:         pair,
		Action:       d.Action.String(),
		Reason:       d.Reason,
		CurrentPrice: price,
		AvgCost:      d.AvgCost,
		BuyTrigger:   d.BuyTrigger,
		SellTrigger:  d.SellTrigger,
		RungIndex:    d.RungIndex,
		NativeAmount: d.NativeAmount,
	}
	if band.Available {
		ev.UpperBand = band.Upper
	}
	return ev
}

// DecisionEventRecord bundles a decision event with its log index.
type DecisionEventRecord struct {
	Index uint64
	Event DecisionEvent
}

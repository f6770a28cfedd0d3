package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeEvent is a confirmed trade, the row written to the trade ledger.
type TradeEvent struct {
	Time   time.Time
	Symbol string
	// Action is ActionFirstBuy, ActionRungBuy or ActionSell.
	Action         Action
	TxID           string
	AssetAmount    decimal.Decimal
	Price          decimal.Decimal
	NativeDelta    decimal.Decimal
	NativeRefPrice decimal.Decimal
	QuoteDelta     decimal.Decimal
	// PnLPct and PnLQuote are set for sells only.
	PnLPct   *decimal.Decimal
	PnLQuote *decimal.Decimal
}

// Kind maps the trade to its notification kind.
func (t *TradeEvent) Kind() EventKind {
	if t.Action == ActionSell {
		return EventSell
	}
	return EventBuy
}

// String returns a human-readable string representation.
func (t *TradeEvent) String() string {
	s := fmt.Sprintf("%s %s amount: %s price: %s native: %s tx: %s",
		t.Symbol, t.Kind(), t.AssetAmount.String(), t.Price.String(), t.NativeDelta.String(), t.TxID)
	if t.PnLQuote != nil && t.PnLPct != nil {
		s += fmt.Sprintf(" pnl: %s (%s%%)", t.PnLQuote.StringFixed(4), t.PnLPct.StringFixed(2))
	}
	return s
}

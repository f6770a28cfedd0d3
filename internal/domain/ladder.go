package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BuyRecord is a single confirmed rung purchase. Records are never edited after being appended.
type BuyRecord struct {
	// Price is the quote-currency price per asset unit at execution.
	Price decimal.Decimal `json:"price"`
	// NativeAmount is the lamports spent.
	NativeAmount uint64 `json:"nativeAmount"`
	// AssetAmount is the asset received in its smallest unit.
	AssetAmount RawAmount `json:"assetAmount"`
	TxID        string    `json:"txId,omitempty"`
	Time        time.Time `json:"time"`
}

func newBuyRecord(price decimal.Decimal, nativeAmount uint64, assetAmount RawAmount, txID string, at time.Time) (BuyRecord, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return BuyRecord{}, fmt.Errorf("price must be positive, got %s", price.String())
	}
	if nativeAmount == 0 {
		return BuyRecord{}, fmt.Errorf("native amount must be positive")
	}
	if assetAmount.IsZero() {
		return BuyRecord{}, fmt.Errorf("asset amount must be positive")
	}

	return BuyRecord{
		Price:        price,
		NativeAmount: nativeAmount,
		AssetAmount:  assetAmount,
		TxID:         txID,
		Time:         at,
	}, nil
}

// SellSummary records the outcome of one full sell.
type SellSummary struct {
	Time         time.Time       `json:"time"`
	ProfitQuote  decimal.Decimal `json:"profitQuote"`
	ProfitNative decimal.Decimal `json:"profitNative"`
	ProfitPct    decimal.Decimal `json:"profitPct"`
	TxID         string          `json:"txId,omitempty"`
}

// LadderState is the persisted position of the ladder for one tracked asset.
type LadderState struct {
	TrackedAssetID   string        `json:"trackedAssetId"`
	Buys             []BuyRecord   `json:"buys"`
	Sells            []SellSummary `json:"sells"`
	PendingTipNative RawAmount     `json:"pendingTipNative"`
}

// NewLadderState returns an empty state tracking assetID.
func NewLadderState(assetID string) *LadderState {
	return &LadderState{
		TrackedAssetID: assetID,
		Buys:           make([]BuyRecord, 0),
		Sells:          make([]SellSummary, 0),
	}
}

func (s *LadderState) IsEmpty() bool {
	return len(s.Buys) == 0
}

// RungIndex is the index of the next rung to buy.
func (s *LadderState) RungIndex() int {
	return len(s.Buys)
}

// LastBuyPrice returns the price of the most recent buy, zero when empty.
func (s *LadderState) LastBuyPrice() decimal.Decimal {
	if len(s.Buys) == 0 {
		return decimal.Zero
	}
	return s.Buys[len(s.Buys)-1].Price
}

// TotalAsset sums the asset received across all buys.
func (s *LadderState) TotalAsset() RawAmount {
	total := RawAmount{}
	for _, b := range s.Buys {
		total = total.Add(b.AssetAmount)
	}
	return total
}

// TotalNative sums the lamports spent across all buys.
func (s *LadderState) TotalNative() uint64 {
	var total uint64
	for _, b := range s.Buys {
		total += b.NativeAmount
	}
	return total
}

// AvgCost is the asset-weighted average buy price.
func (s *LadderState) AvgCost() decimal.Decimal {
	weighted := decimal.Zero
	amount := decimal.Zero
	for _, b := range s.Buys {
		a := b.AssetAmount.Decimal()
		weighted = weighted.Add(b.Price.Mul(a))
		amount = amount.Add(a)
	}
	if amount.IsZero() {
		return decimal.Zero
	}
	return weighted.Div(amount)
}

// CostBasisQuote is the quote-currency value paid for the held asset.
func (s *LadderState) CostBasisQuote(assetDecimals uint8) decimal.Decimal {
	total := decimal.Zero
	for _, b := range s.Buys {
		total = total.Add(b.Price.Mul(b.AssetAmount.Units(assetDecimals)))
	}
	return total
}

// BuyTrigger is the price at or below which the next rung fires.
func (s *LadderState) BuyTrigger(cfg LadderConfig) decimal.Decimal {
	drop := cfg.NextDropPct(s.RungIndex()).Div(decimal.NewFromInt(percentage))
	return s.LastBuyPrice().Mul(decimal.NewFromInt(1).Sub(drop))
}

// SellTrigger is the price at or above which the whole position is sold.
func (s *LadderState) SellTrigger(cfg LadderConfig) decimal.Decimal {
	gain := cfg.SellProfitPct.Div(decimal.NewFromInt(percentage))
	return s.AvgCost().Mul(decimal.NewFromInt(1).Add(gain))
}

// AddBuy appends a validated buy record.
func (s *LadderState) AddBuy(price decimal.Decimal, nativeAmount uint64, assetAmount RawAmount, txID string, at time.Time) error {
	rec, err := newBuyRecord(price, nativeAmount, assetAmount, txID, at)
	if err != nil {
		return fmt.Errorf("invalid buy: %w", err)
	}
	s.Buys = append(s.Buys, rec)
	return nil
}

// ClearBuys drops every buy record at once.
func (s *LadderState) ClearBuys() {
	s.Buys = make([]BuyRecord, 0)
}

// RecordSell appends the sell summary and clears the buy records.
func (s *LadderState) RecordSell(summary SellSummary) {
	s.Sells = append(s.Sells, summary)
	s.ClearBuys()
}

// AccrueTip adds lamports to the pending tip.
func (s *LadderState) AccrueTip(lamports uint64) {
	s.PendingTipNative = s.PendingTipNative.Add(RawAmountFromUint64(lamports))
}

// SwitchAsset wipes the whole state and starts tracking assetID.
func (s *LadderState) SwitchAsset(assetID string) {
	*s = *NewLadderState(assetID)
}

// HasTx reports whether a buy or sell with txID is already recorded.
func (s *LadderState) HasTx(txID string) bool {
	if txID == "" {
		return false
	}
	for _, b := range s.Buys {
		if b.TxID == txID {
			return true
		}
	}
	for _, sl := range s.Sells {
		if sl.TxID == txID {
			return true
		}
	}
	return false
}

// SellStats aggregates sells that happened at or after since.
type SellStats struct {
	Count       int
	Wins        int
	ProfitQuote decimal.Decimal
}

// WinRate returns wins/count in percent.
func (s SellStats) WinRate() decimal.Decimal {
	if s.Count == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.Wins)).Mul(decimal.NewFromInt(percentage)).Div(decimal.NewFromInt(int64(s.Count)))
}

// SellStatsSince returns stats over sells at or after since. A zero since covers all sells.
func (s *LadderState) SellStatsSince(since time.Time) SellStats {
	stats := SellStats{ProfitQuote: decimal.Zero}
	for _, sl := range s.Sells {
		if sl.Time.Before(since) {
			continue
		}
		stats.Count++
		if sl.ProfitQuote.IsPositive() {
			stats.Wins++
		}
		stats.ProfitQuote = stats.ProfitQuote.Add(sl.ProfitQuote)
	}
	return stats
}

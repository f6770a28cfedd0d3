package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Quote is a priced swap route.
type Quote struct {
	InputMint  string
	OutputMint string
	InAmount   RawAmount
	OutAmount  RawAmount
	// WorstCaseOut is the minimum output after the slippage cap.
	WorstCaseOut RawAmount
	// PriceImpactPct is expressed in percent (0.5 means half a percent).
	PriceImpactPct decimal.Decimal
	SlippageBps    int
	// Raw is the router payload needed to build the swap transaction.
	Raw json.RawMessage
}

// SignatureStatus is the chain's view of a submitted transaction.
type SignatureStatus struct {
	Found              bool
	ConfirmationStatus string
	Err                string
}

// Settled reports whether the transaction reached confirmed or finalized without error.
func (s SignatureStatus) Settled() bool {
	return s.Found && s.Err == "" && (s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized")
}

// Failed reports whether the chain recorded an error for the transaction.
func (s SignatureStatus) Failed() bool {
	return s.Found && s.Err != ""
}

// TokenBalance is a token account balance.
type TokenBalance struct {
	Amount   RawAmount
	Decimals uint8
}

// PairInfo is the price lookup result for the tracked pair.
type PairInfo struct {
	// Price is the quote-currency price per asset unit.
	Price       decimal.Decimal
	BaseSymbol  string
	QuoteSymbol string
}

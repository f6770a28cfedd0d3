package status

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/ladder/internal/domain"
)

func TestRender(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	cfg := domain.LadderConfig{
		InitialRungNative: 10_000_000,
		MaxRungs:          3,
		VolumeMultiplier:  decimal.NewFromInt(2),
		BaseDropPct:       decimal.NewFromInt(10),
		DropMultiplier:    decimal.NewFromInt(1),
		SellProfitPct:     decimal.NewFromInt(5),
	}
	pair := domain.Pair{Address: "PairAddress", AssetMint: "MintAddress", Base: "BONK", Quote: "SOL"}

	state := domain.NewLadderState(pair.AssetMint)
	state.RecordSell(domain.SellSummary{Time: now.Add(-2 * time.Hour), ProfitQuote: decimal.NewFromInt(10)})
	state.RecordSell(domain.SellSummary{Time: now.Add(-72 * time.Hour), ProfitQuote: decimal.NewFromInt(-4)})
	state.RecordSell(domain.SellSummary{Time: now.Add(-30 * 24 * time.Hour), ProfitQuote: decimal.NewFromInt(6)})
	require.NoError(t, state.AddBuy(decimal.NewFromInt(1), 10_000_000, domain.RawAmountFromUint64(1_000_000), "tx-1", now))

	var buf bytes.Buffer
	Render(&buf, pair, cfg, state, 6, now)
	out := buf.String()

	assert.Contains(t, out, "BONK/SOL")
	assert.Contains(t, out, "0.9000000000")
	assert.Contains(t, out, "1.0500000000")
	assert.Contains(t, out, "next rung 0.02 SOL")
	assert.Contains(t, out, "10.0000")
	assert.Contains(t, out, "6.0000")
	assert.Contains(t, out, "12.0000")
	assert.Contains(t, out, "66.7%")
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, domain.Pair{AssetMint: "Mint"}, domain.LadderConfig{}, nil, 6, time.Now())
	assert.Contains(t, buf.String(), "no open rungs")
}

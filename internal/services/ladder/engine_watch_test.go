package ladder

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/clients/solana"
	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/internal/services/watcher"
)

const testWallet = "Wallet1111111111111111111111111111111111111"

// walletHistory serves signatures newest first, like getSignaturesForAddress.
type walletHistory struct {
	sigs []string
	txs  map[string]*solana.Transaction
}

func newWalletHistory(sigs ...string) *walletHistory {
	h := &walletHistory{txs: map[string]*solana.Transaction{}}
	for _, s := range sigs {
		h.push(s, &solana.Transaction{})
	}
	return h
}

func (h *walletHistory) GetSignaturesForAddress(_ context.Context, _ string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	var out []solana.SignatureInfo
	for _, s := range h.sigs {
		if s == opts.Until {
			break
		}
		out = append(out, solana.SignatureInfo{Signature: s})
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (h *walletHistory) GetTransaction(_ context.Context, sig string) (*solana.Transaction, error) {
	return h.txs[sig], nil
}

func (h *walletHistory) push(sig string, tx *solana.Transaction) {
	h.sigs = append([]string{sig}, h.sigs...)
	h.txs[sig] = tx
}

func (h *walletHistory) pushTransferOut(sig, pre, post string) {
	entry := func(amount string) solana.TokenBalanceEntry {
		var e solana.TokenBalanceEntry
		e.Owner, e.Mint = testWallet, testMint
		e.UITokenAmount.Amount = amount
		return e
	}
	h.push(sig, &solana.Transaction{
		PreTokenBalances:  []solana.TokenBalanceEntry{entry(pre)},
		PostTokenBalances: []solana.TokenBalanceEntry{entry(post)},
	})
}

func TestEngine_TransferBetweenSeriesDoesNotResetNextSeries(t *testing.T) {
	h := newHarness(t, nil)
	history := newWalletHistory("genesis")
	h.engine.c.Watcher = watcher.NewTransferWatcher(zap.NewNop(), history, testWallet, testMint)
	require.NoError(t, h.engine.Initialize(context.Background()))

	require.NotNil(t, h.tick(t, "1.00"))
	sell := h.tick(t, "1.10")
	require.NotNil(t, sell)
	require.Equal(t, domain.ActionSell, sell.Action)

	// dust leaves the wallet while no series is open
	history.pushTransferOut("dust", "10", "0")

	first := h.tick(t, "1.00")
	require.NotNil(t, first)
	assert.Equal(t, domain.ActionFirstBuy, first.Action)

	assert.Nil(t, h.tick(t, "0.99"), "above the next buy trigger")

	st := h.engine.State()
	require.Len(t, st.Buys, 1)
	assert.True(t, st.Buys[0].Price.Equal(decimal.RequireFromString("1.00")))
	assert.Zero(t, h.notes.count(domain.EventBalance, "manual transfer"))

	asset, err := h.sim.AssetBalance(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, st.TotalAsset().String(), asset.Amount.String(), "every held unit is recorded")
}

func TestEngine_TransferDuringSeriesStillResets(t *testing.T) {
	h := newHarness(t, nil)
	history := newWalletHistory("genesis")
	h.engine.c.Watcher = watcher.NewTransferWatcher(zap.NewNop(), history, testWallet, testMint)
	require.NoError(t, h.engine.Initialize(context.Background()))

	require.NotNil(t, h.tick(t, "1.00"))
	history.pushTransferOut("manual", "100", "0")
	h.sim.SetBalances(0, domain.RawAmount{})

	assert.Nil(t, h.tick(t, "1.00"))
	assert.Empty(t, h.engine.State().Buys)
	assert.Equal(t, 1, h.notes.count(domain.EventBalance, "manual transfer"))
}

func TestEngine_RestartSeedsWatcherFromJournal(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	first := buildHarness(t, dir, cfg, nil)
	require.NoError(t, first.engine.Initialize(context.Background()))
	trade := first.tick(t, "1.00")
	require.NotNil(t, trade)
	require.NoError(t, first.engine.Close())

	restarted := buildHarness(t, dir, cfg, first.sim)
	w := &fixedWatcher{}
	restarted.engine.c.Watcher = w
	require.NoError(t, restarted.engine.Initialize(context.Background()))

	assert.Equal(t, trade.TxID, w.seeded)
	assert.Contains(t, w.ignored, trade.TxID)
}

package ladder

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/internal/services/trader"
	"github.com/vadiminshakov/ladder/internal/storage/ledger"
)

const (
	testMint     = "AssetMint111111111111111111111111111111111"
	testDecimals = 6
	solLamports  = 1_000_000_000
)

type stubPrices struct {
	mu    sync.Mutex
	price decimal.Decimal
	ref   decimal.Decimal
}

func (p *stubPrices) set(price string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.price = decimal.RequireFromString(price)
}

func (p *stubPrices) PairInfo(context.Context, domain.Pair) (domain.PairInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.PairInfo{Price: p.price, BaseSymbol: "BONK", QuoteSymbol: "USDC"}, nil
}

func (p *stubPrices) NativePrice(context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ref, nil
}

type note struct {
	kind domain.EventKind
	msg  string
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (r *recordingNotifier) Send(_ context.Context, kind domain.EventKind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{kind: kind, msg: msg})
}

func (r *recordingNotifier) count(kind domain.EventKind, substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, nt := range r.notes {
		if nt.kind == kind && strings.Contains(nt.msg, substr) {
			n++
		}
	}
	return n
}

// transferSpy counts tip payouts on top of the paper trader.
type transferSpy struct {
	*trader.SimulateTrader
	transfers []uint64
	fail      error
}

func (s *transferSpy) Transfer(ctx context.Context, dest string, lamports uint64) (string, error) {
	s.transfers = append(s.transfers, lamports)
	if s.fail != nil {
		return "", s.fail
	}
	return s.SimulateTrader.Transfer(ctx, dest, lamports)
}

type harness struct {
	engine *Engine
	sim    *trader.SimulateTrader
	exec   *transferSpy
	prices *stubPrices
	notes  *recordingNotifier
	store  *ledger.Store
}

func ladderConfig() domain.LadderConfig {
	return domain.LadderConfig{
		InitialRungNative:         domain.NativeToLamports(decimal.RequireFromString("0.01")),
		MaxRungs:                  3,
		VolumeMultiplier:          decimal.NewFromInt(2),
		BaseDropPct:               decimal.NewFromInt(10),
		DropMultiplier:            decimal.NewFromInt(1),
		SellProfitPct:             decimal.NewFromInt(5),
		IndicatorPeriod:           20,
		IndicatorSpreadMultiplier: decimal.NewFromInt(2),
		SlippageCapBps:            10,
		UnderflowTolerance:        domain.DefaultUnderflowTolerance,
	}
}

func testConfig(dir string) Config {
	return Config{
		Pair:            domain.Pair{Address: "PairAddr", AssetMint: testMint},
		Ladder:          ladderConfig(),
		ConfirmInterval: time.Millisecond,
		ConfirmTimeout:  50 * time.Millisecond,
		JournalDir:      dir + "/journal",
	}
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := testConfig(dir)
	if mutate != nil {
		mutate(&cfg)
	}
	return buildHarness(t, dir, cfg, nil)
}

func buildHarness(t *testing.T, dir string, cfg Config, sim *trader.SimulateTrader) *harness {
	t.Helper()
	prices := &stubPrices{price: decimal.NewFromInt(1), ref: decimal.NewFromInt(100)}
	if sim == nil {
		var err error
		sim, err = trader.NewSimulateTrader(zap.NewNop(), cfg.Pair, testDecimals, prices, nil)
		require.NoError(t, err)
	}
	store, err := ledger.NewStore(zap.NewNop(), dir+"/state")
	require.NoError(t, err)

	spy := &transferSpy{SimulateTrader: sim}
	notes := &recordingNotifier{}
	engine, err := NewEngine(zap.NewNop(), cfg, Collaborators{
		Pricer:    prices,
		RefPricer: prices,
		Executor:  spy,
		Chain:     sim,
		Notifier:  notes,
		Store:     store,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	return &harness{engine: engine, sim: sim, exec: spy, prices: prices, notes: notes, store: store}
}

func (h *harness) tick(t *testing.T, price string) *domain.TradeEvent {
	t.Helper()
	h.prices.set(price)
	trade, err := h.engine.Tick(context.Background())
	require.NoError(t, err)
	return trade
}

func TestEngine_ScenarioA_RungSchedule(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Initialize(context.Background()))
	assert.Equal(t, 1, h.notes.count(domain.EventStart, "BONK/USDC"))

	trade := h.tick(t, "1.00")
	require.NotNil(t, trade)
	assert.Equal(t, domain.ActionFirstBuy, trade.Action)

	assert.Nil(t, h.tick(t, "0.95"), "above the 10% drop trigger")

	trade = h.tick(t, "0.90")
	require.NotNil(t, trade)
	assert.Equal(t, domain.ActionRungBuy, trade.Action)

	assert.Nil(t, h.tick(t, "0.82"))
	require.NotNil(t, h.tick(t, "0.81"))

	assert.Nil(t, h.tick(t, "0.50"), "rung cap reached")

	buys := h.engine.State().Buys
	require.Len(t, buys, 3)
	assert.Equal(t, []uint64{10_000_000, 20_000_000, 40_000_000},
		[]uint64{buys[0].NativeAmount, buys[1].NativeAmount, buys[2].NativeAmount})
	for i := 1; i < len(buys); i++ {
		expected := buys[i-1].Price.Mul(decimal.RequireFromString("0.9"))
		assert.True(t, expected.Equal(buys[i].Price), "rung %d at %s, want %s", i, buys[i].Price, expected)
	}

	saved, err := h.store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Len(t, saved.Buys, 3)

	native, err := h.sim.NativeBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(trader.DefaultPaperLamports-70_000_000), native)
	assert.Equal(t, 3, h.notes.count(domain.EventBuy, ""))
}

func TestEngine_SellClosesSeries(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Initialize(context.Background()))

	require.NotNil(t, h.tick(t, "1.00"))
	require.NotNil(t, h.tick(t, "0.90"))

	sellTrigger := h.engine.State().SellTrigger(h.engine.cfg.Ladder)
	assert.Nil(t, h.tick(t, sellTrigger.Sub(decimal.RequireFromString("0.001")).String()))

	trade := h.tick(t, "1.10")
	require.NotNil(t, trade)
	assert.Equal(t, domain.ActionSell, trade.Action)
	require.NotNil(t, trade.PnLQuote)
	assert.True(t, trade.PnLQuote.IsPositive())

	st := h.engine.State()
	assert.True(t, st.IsEmpty())
	require.Len(t, st.Sells, 1)
	assert.Equal(t, trade.TxID, st.Sells[0].TxID)
	assert.False(t, st.PendingTipNative.IsZero())
	assert.Equal(t, 1, h.notes.count(domain.EventSell, ""))

	asset, err := h.sim.AssetBalance(context.Background(), testMint)
	require.NoError(t, err)
	assert.True(t, asset.Amount.IsZero())
}

func TestEngine_ScenarioC_TipBelowThresholdAccruesOnly(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Ladder.InitialRungNative = 10 * solLamports
		c.Ladder.SellProfitPct = decimal.NewFromInt(4)
		c.TipDestination = "TipDestination1111111111111111111111111111"
		c.TipFlushThresholdQuote = decimal.NewFromInt(1)
	})
	h.sim.SetBalances(20*solLamports, domain.RawAmount{})
	require.NoError(t, h.engine.Initialize(context.Background()))

	require.NotNil(t, h.tick(t, "1.00"))
	trade := h.tick(t, "1.05")
	require.NotNil(t, trade)
	require.NotNil(t, trade.PnLQuote)
	assert.True(t, decimal.NewFromInt(50).Equal(*trade.PnLQuote), "profit %s", trade.PnLQuote)

	// 0.5 quote of tip at 100 quote per native
	assert.Equal(t, uint64(5_000_000), h.engine.State().PendingTipNative.Uint64())
	assert.Empty(t, h.exec.transfers)
}

func TestEngine_TipFlushedAtThreshold(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Ladder.InitialRungNative = 10 * solLamports
		c.Ladder.SellProfitPct = decimal.NewFromInt(4)
		c.TipDestination = "TipDestination1111111111111111111111111111"
		c.TipFlushThresholdQuote = decimal.RequireFromString("0.5")
	})
	h.sim.SetBalances(20*solLamports, domain.RawAmount{})
	require.NoError(t, h.engine.Initialize(context.Background()))

	require.NotNil(t, h.tick(t, "1.00"))
	require.NotNil(t, h.tick(t, "1.05"))

	assert.Equal(t, []uint64{5_000_000}, h.exec.transfers)
	assert.True(t, h.engine.State().PendingTipNative.IsZero())
	assert.Equal(t, 1, h.notes.count(domain.EventBalance, "tip of"))
}

func TestEngine_TipKeptWhenPayoutFails(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Ladder.InitialRungNative = 10 * solLamports
		c.Ladder.SellProfitPct = decimal.NewFromInt(4)
		c.TipDestination = "TipDestination1111111111111111111111111111"
		c.TipFlushThresholdQuote = decimal.RequireFromString("0.5")
	})
	h.sim.SetBalances(20*solLamports, domain.RawAmount{})
	require.NoError(t, h.engine.Initialize(context.Background()))

	require.NotNil(t, h.tick(t, "1.00"))
	h.exec.fail = domain.ErrTxFailed
	require.NotNil(t, h.tick(t, "1.05"), "a failed payout does not undo the sell")

	assert.Len(t, h.exec.transfers, 1)
	assert.Equal(t, uint64(5_000_000), h.engine.State().PendingTipNative.Uint64())
}

func TestEngine_TokenSwitchResetsLedger(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	h := buildHarness(t, dir, cfg, nil)

	old := domain.NewLadderState("OldMint")
	require.NoError(t, old.AddBuy(decimal.NewFromInt(1), 1000, domain.RawAmountFromUint64(1000), "old-tx", time.Now()))
	old.RecordSell(domain.SellSummary{Time: time.Now(), ProfitQuote: decimal.NewFromInt(3)})
	old.AccrueTip(77)
	require.NoError(t, old.AddBuy(decimal.NewFromInt(1), 1000, domain.RawAmountFromUint64(1000), "old-tx-2", time.Now()))
	require.NoError(t, h.store.Save(old))

	require.NoError(t, h.engine.Initialize(context.Background()))

	st := h.engine.State()
	assert.Equal(t, testMint, st.TrackedAssetID)
	assert.Empty(t, st.Buys)
	assert.Empty(t, st.Sells)
	assert.True(t, st.PendingTipNative.IsZero())

	saved, err := h.store.Load()
	require.NoError(t, err)
	assert.Equal(t, testMint, saved.TrackedAssetID)
}

func TestEngine_UnderflowGuardClearsBuysOnly(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Initialize(context.Background()))
	require.NotNil(t, h.tick(t, "1.00"))

	st := h.engine.State()
	st.Sells = append(st.Sells, domain.SellSummary{Time: time.Now(), ProfitQuote: decimal.NewFromInt(1)})
	st.AccrueTip(123)

	recorded := st.TotalAsset()
	short := domain.NewRawAmount(recorded.Decimal().Mul(decimal.RequireFromString("0.89")).BigInt())
	// no native left, so the empty ladder cannot restart in the same tick
	h.sim.SetBalances(0, short)

	assert.Nil(t, h.tick(t, "1.00"))

	st = h.engine.State()
	assert.Empty(t, st.Buys)
	assert.Len(t, st.Sells, 1)
	assert.Equal(t, uint64(123), st.PendingTipNative.Uint64())
	assert.Equal(t, 1, h.notes.count(domain.EventBalance, "ladder reset"))
}

func TestEngine_UnderflowGuardToleratesSmallDrift(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Initialize(context.Background()))
	require.NotNil(t, h.tick(t, "1.00"))

	recorded := h.engine.State().TotalAsset()
	h.sim.SetBalances(solLamports, domain.NewRawAmount(recorded.Decimal().Mul(decimal.RequireFromString("0.95")).BigInt()))

	assert.Nil(t, h.tick(t, "0.99"))
	assert.Len(t, h.engine.State().Buys, 1)
}

type fixedWatcher struct {
	moved   bool
	ignored []string
	seeded  string
}

func (w *fixedWatcher) Ignore(txID string) { w.ignored = append(w.ignored, txID) }

func (w *fixedWatcher) Seed(txID string) { w.seeded = txID }

func (w *fixedWatcher) DetectTransferOut(context.Context) (bool, error) {
	moved := w.moved
	w.moved = false
	return moved, nil
}

func TestEngine_ManualTransferResetsBuys(t *testing.T) {
	h := newHarness(t, nil)
	w := &fixedWatcher{}
	h.engine.c.Watcher = w
	require.NoError(t, h.engine.Initialize(context.Background()))

	trade := h.tick(t, "1.00")
	require.NotNil(t, trade)
	assert.Equal(t, []string{trade.TxID}, w.ignored)

	w.moved = true
	h.sim.SetBalances(0, domain.RawAmount{})
	assert.Nil(t, h.tick(t, "1.00"))
	assert.Empty(t, h.engine.State().Buys)
	assert.Equal(t, 1, h.notes.count(domain.EventBalance, "manual transfer"))
}

func TestEngine_SellSkippedOnThinLiquidity(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Initialize(context.Background()))
	require.NotNil(t, h.tick(t, "1.00"))

	h.sim.PriceImpactPct = decimal.NewFromInt(10)
	assert.Nil(t, h.tick(t, "1.06"))
	assert.Len(t, h.engine.State().Buys, 1)
	assert.Equal(t, 1, h.notes.count(domain.EventTick, domain.ReasonThinLiquidity))

	h.sim.PriceImpactPct = decimal.Zero
	trade := h.tick(t, "1.06")
	require.NotNil(t, trade)
	assert.Equal(t, domain.ActionSell, trade.Action)
}

func TestEngine_InsufficientFundsPausesOnce(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Initialize(context.Background()))
	require.NotNil(t, h.tick(t, "1.00"))

	asset, err := h.sim.AssetBalance(context.Background(), testMint)
	require.NoError(t, err)
	h.sim.SetBalances(1_000, asset.Amount)

	assert.Nil(t, h.tick(t, "0.90"))
	assert.True(t, h.engine.Paused())
	assert.Nil(t, h.tick(t, "0.85"))
	assert.Nil(t, h.tick(t, "0.80"))

	assert.Equal(t, 1, h.notes.count(domain.EventBalance, "insufficient funds"))
	assert.Len(t, h.engine.State().Buys, 1)

	h.sim.SetBalances(solLamports, asset.Amount)
	require.NotNil(t, h.tick(t, "1.10"), "sell still runs while paused")
	assert.False(t, h.engine.Paused())
}

func TestEngine_BenignSimulationSkipsTick(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Initialize(context.Background()))

	h.sim.FailNextExecution(domain.ErrBenignSimulation)
	assert.Nil(t, h.tick(t, "1.00"))
	assert.Empty(t, h.engine.State().Buys)
	assert.Equal(t, 1, h.notes.count(domain.EventTick, "skipped"))

	require.NotNil(t, h.tick(t, "1.00"))
}

func TestEngine_UnconfirmedBuyLeavesLedgerUntouched(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Initialize(context.Background()))

	h.sim.WithholdConfirmations(true)
	h.prices.set("1.00")
	trade, err := h.engine.Tick(context.Background())
	require.ErrorIs(t, err, domain.ErrNotConfirmed)
	assert.Nil(t, trade)
	assert.Empty(t, h.engine.State().Buys)

	intents := h.engine.journal.Intents()
	require.Len(t, intents, 1)
	assert.Equal(t, tradeIntentStatusFailed, intents[0].Status)
}

func TestEngine_ExecutionErrorIsReturned(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Initialize(context.Background()))

	h.sim.FailNextExecution(domain.ErrTxFailed)
	h.prices.set("1.00")
	_, err := h.engine.Tick(context.Background())
	require.ErrorIs(t, err, domain.ErrTxFailed)
	assert.Empty(t, h.engine.State().Buys)
}

func TestEngine_ReconcilesSubmittedIntentOnce(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	prices := &stubPrices{price: decimal.NewFromInt(1), ref: decimal.NewFromInt(100)}
	sim, err := trader.NewSimulateTrader(zap.NewNop(), cfg.Pair, testDecimals, prices, nil)
	require.NoError(t, err)

	ctx := context.Background()
	quote, err := sim.Quote(ctx, domain.NativeMint, testMint, domain.RawAmountFromUint64(10_000_000), 10)
	require.NoError(t, err)
	txID, err := sim.Execute(ctx, quote)
	require.NoError(t, err)

	// a run that crashed after submission
	wal, err := openJournalWAL(cfg.JournalDir)
	require.NoError(t, err)
	journal, errs := loadTradeJournal(wal)
	require.Empty(t, errs)
	buy, err := journal.Prepare(&tradeIntentRecord{
		Action:       intentActionBuy,
		Price:        decimal.NewFromInt(1),
		Time:         time.Now(),
		NativeAmount: 10_000_000,
		AssetAmount:  quote.OutAmount,
	})
	require.NoError(t, err)
	require.NoError(t, journal.MarkSubmitted(buy, txID))
	_, err = journal.Prepare(&tradeIntentRecord{Action: intentActionBuy, Price: decimal.NewFromInt(1), NativeAmount: 1})
	require.NoError(t, err)
	require.NoError(t, journal.Close())

	h := buildHarness(t, dir, cfg, sim)
	require.NoError(t, h.engine.Initialize(ctx))

	buys := h.engine.State().Buys
	require.Len(t, buys, 1)
	assert.Equal(t, txID, buys[0].TxID)
	assert.Equal(t, quote.OutAmount.String(), buys[0].AssetAmount.String())
	assert.Empty(t, h.engine.journal.Open())
	require.NoError(t, h.engine.Close())

	again := buildHarness(t, dir, cfg, sim)
	require.NoError(t, again.engine.Initialize(ctx))
	assert.Len(t, again.engine.State().Buys, 1)
}

func TestEngine_ReconcileSkipsRecordedTx(t *testing.T) {
	e := &Engine{l: zap.NewNop(), state: domain.NewLadderState(testMint)}
	require.NoError(t, e.state.AddBuy(decimal.NewFromInt(1), 5, domain.RawAmountFromUint64(5), "tx-1", time.Now()))

	err := e.applyIntent(&tradeIntentRecord{
		Action:       intentActionBuy,
		Price:        decimal.NewFromInt(1),
		NativeAmount: 5,
		AssetAmount:  domain.RawAmountFromUint64(5),
		TxID:         "tx-1",
	})
	require.NoError(t, err)
	assert.Len(t, e.state.Buys, 1)

	e.state.AccrueTip(100)
	require.NoError(t, e.applyIntent(&tradeIntentRecord{Action: intentActionTip, NativeAmount: 60, TxID: "tip-1"}))
	assert.Equal(t, uint64(40), e.state.PendingTipNative.Uint64())
}

func TestTipLamports(t *testing.T) {
	ref := decimal.NewFromInt(100)
	assert.Equal(t, uint64(5_000_000), tipLamports(decimal.NewFromInt(50), ref))
	assert.Zero(t, tipLamports(decimal.NewFromInt(-5), ref))
	assert.Zero(t, tipLamports(decimal.Zero, ref))
	assert.Zero(t, tipLamports(decimal.NewFromInt(50), decimal.Zero))
}

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Ladder.InitialRungNative = 0
	_, err := NewEngine(zap.NewNop(), cfg, Collaborators{})
	assert.Error(t, err)
}

func TestEngine_ExecutionFailureIsNotified(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Initialize(context.Background()))

	h.sim.FailNextExecution(domain.ErrTxFailed)
	h.prices.set("1.00")
	_, err := h.engine.Tick(context.Background())
	require.ErrorIs(t, err, domain.ErrTxFailed)

	assert.Equal(t, 1, h.notes.count(domain.EventTick, domain.ReasonExecutionFailed))
	assert.Equal(t, 1, h.notes.count(domain.EventTick, "transaction failed"))
	assert.Zero(t, h.notes.count(domain.EventTick, domain.ReasonEmptyLadder))
}

func TestEngine_NonPositivePriceNeverTrades(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Initialize(context.Background()))

	for _, price := range []string{"0", "-1"} {
		h.prices.set(price)
		trade, err := h.engine.Tick(context.Background())
		require.Error(t, err, price)
		assert.Nil(t, trade)
	}

	assert.Empty(t, h.engine.State().Buys)
	assert.Empty(t, h.engine.journal.Intents())
	assert.Equal(t, 2, h.notes.count(domain.EventTick, "tick failed"))

	native, err := h.sim.NativeBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(trader.DefaultPaperLamports), native)
}

func TestEngine_RSIReportedWithShortIndicatorPeriod(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Ladder.IndicatorPeriod = 5 })

	price := decimal.NewFromInt(100)
	for i := 0; i < 30; i++ {
		step := decimal.NewFromInt(3)
		if i%3 == 2 {
			step = decimal.NewFromInt(-1)
		}
		price = price.Add(step)
		h.engine.observe(price)
	}

	assert.Equal(t, 5, h.engine.band.Len())
	msg := h.engine.tickMessage(price, domain.Decision{Action: domain.ActionHold}, domain.Band{}, nil)
	assert.Contains(t, msg, ", rsi ")
}

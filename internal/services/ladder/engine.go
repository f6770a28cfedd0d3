// Package ladder runs the DCA ladder for one asset: it turns price observations into
// confirmed buys and sells and keeps the position ledger in step with the chain.
package ladder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/internal/metrics"
	"github.com/vadiminshakov/ladder/pkg/indicators"
)

const (
	defaultConfirmInterval = 2 * time.Second
	defaultConfirmTimeout  = 90 * time.Second
	rsiPeriod              = 14
	rsiHistory             = 4 * rsiPeriod
)

type pairPricer interface {
	PairInfo(ctx context.Context, pair domain.Pair) (domain.PairInfo, error)
}

type referencePricer interface {
	NativePrice(ctx context.Context) (decimal.Decimal, error)
}

type executor interface {
	Quote(ctx context.Context, inputMint, outputMint string, amount domain.RawAmount, slippageBps int) (domain.Quote, error)
	// Execute submits the swap and returns its transaction id without waiting for settlement.
	Execute(ctx context.Context, quote domain.Quote) (string, error)
	Transfer(ctx context.Context, dest string, lamports uint64) (string, error)
}

type chainState interface {
	NativeBalance(ctx context.Context) (uint64, error)
	AssetBalance(ctx context.Context, mint string) (domain.TokenBalance, error)
	SignatureStatus(ctx context.Context, txID string) (domain.SignatureStatus, error)
}

type transferWatcher interface {
	Ignore(txID string)
	// Seed sets the cursor to txID unless the watcher already has one.
	Seed(txID string)
	DetectTransferOut(ctx context.Context) (bool, error)
}

type notifier interface {
	Send(ctx context.Context, kind domain.EventKind, msg string)
}

type ledgerStore interface {
	Load() (*domain.LadderState, error)
	Save(state *domain.LadderState) error
}

type decisionLog interface {
	Save(event domain.DecisionEvent) error
}

type tradeLog interface {
	Append(ev domain.TradeEvent) error
}

// Config holds the engine settings.
type Config struct {
	Pair   domain.Pair
	Ladder domain.LadderConfig
	// TipDestination receives accrued tips. Empty disables payouts; tips keep accruing.
	TipDestination         string
	TipFlushThresholdQuote decimal.Decimal
	ConfirmInterval        time.Duration
	ConfirmTimeout         time.Duration
	// JournalDir holds the trade intent WAL.
	JournalDir string
}

// Collaborators are the engine's external dependencies. Watcher, Decisions and Trades are optional.
type Collaborators struct {
	Pricer    pairPricer
	RefPricer referencePricer
	Executor  executor
	Chain     chainState
	Watcher   transferWatcher
	Notifier  notifier
	Store     ledgerStore
	Decisions decisionLog
	Trades    tradeLog
}

// Engine is the ladder state machine. Tick must not run concurrently with itself.
type Engine struct {
	l    *zap.Logger
	cfg  Config
	pair domain.Pair
	c    Collaborators

	state   *domain.LadderState
	band    *indicators.Band
	closes  []decimal.Decimal
	journal *tradeJournal
	paused  bool

	assetDecimals uint8
	now           func() time.Time
	closeOnce     sync.Once
}

// NewEngine validates cfg and opens the trade journal.
func NewEngine(l *zap.Logger, cfg Config, c Collaborators) (*Engine, error) {
	if err := cfg.Ladder.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid ladder config")
	}
	if cfg.Pair.AssetMint == "" {
		return nil, errors.New("asset mint is required")
	}
	if c.Pricer == nil || c.RefPricer == nil || c.Executor == nil || c.Chain == nil || c.Notifier == nil || c.Store == nil {
		return nil, errors.New("pricer, reference pricer, executor, chain, notifier and store are required")
	}
	if cfg.ConfirmInterval <= 0 {
		cfg.ConfirmInterval = defaultConfirmInterval
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}
	if cfg.TipFlushThresholdQuote.IsZero() {
		cfg.TipFlushThresholdQuote = decimal.NewFromInt(1)
	}

	wal, err := openJournalWAL(cfg.JournalDir)
	if err != nil {
		return nil, err
	}
	journal, errs := loadTradeJournal(wal)
	for _, e := range errs {
		l.Error("skipping trade intent", zap.Error(e))
	}

	return &Engine{
		l:       l,
		cfg:     cfg,
		pair:    cfg.Pair,
		c:       c,
		state:   domain.NewLadderState(cfg.Pair.AssetMint),
		band:    indicators.NewBand(cfg.Ladder.IndicatorPeriod, cfg.Ladder.IndicatorSpreadMultiplier),
		journal: journal,
		now:     time.Now,
	}, nil
}

// Initialize loads the ledger, applies the token switch reset, settles open trade intents
// and announces the start.
func (e *Engine) Initialize(ctx context.Context) error {
	state, err := e.c.Store.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load ladder state")
	}
	if state != nil {
		e.state = state
	}

	if e.state.TrackedAssetID != e.pair.AssetMint {
		if e.state.TrackedAssetID != "" {
			e.l.Info("tracked asset changed, resetting ladder",
				zap.String("previous", e.state.TrackedAssetID),
				zap.String("current", e.pair.AssetMint))
		}
		e.state.SwitchAsset(e.pair.AssetMint)
		if err := e.save(); err != nil {
			return err
		}
	}

	e.reconcileTradeIntents(ctx)
	e.seedWatcher()
	e.resolveSymbols(ctx)

	if bal, err := e.c.Chain.AssetBalance(ctx, e.pair.AssetMint); err != nil {
		e.l.Warn("failed to read asset balance at start", zap.Error(err))
	} else {
		e.assetDecimals = bal.Decimals
	}

	e.updateGauges()
	e.c.Notifier.Send(ctx, domain.EventStart, e.startMessage())
	return nil
}

// State returns the live ledger.
func (e *Engine) State() *domain.LadderState {
	return e.state
}

// Paused reports whether rung buys are paused for lack of funds.
func (e *Engine) Paused() bool {
	return e.paused
}

// Pair returns the pair with resolved display symbols.
func (e *Engine) Pair() domain.Pair {
	return e.pair
}

// seedWatcher marks every journaled transaction as the engine's own and starts the watcher
// after the latest of them, so transfers made while the process was down are inspected.
func (e *Engine) seedWatcher() {
	if e.c.Watcher == nil {
		return
	}
	var last string
	for _, intent := range e.journal.Intents() {
		if intent.TxID == "" {
			continue
		}
		e.c.Watcher.Ignore(intent.TxID)
		last = intent.TxID
	}
	if last != "" {
		e.c.Watcher.Seed(last)
	}
}

func (e *Engine) resolveSymbols(ctx context.Context) {
	info, err := e.c.Pricer.PairInfo(ctx, e.pair)
	if err != nil {
		e.l.Warn("failed to resolve pair symbols, using identifiers", zap.Error(err))
		return
	}
	e.pair.Base = info.BaseSymbol
	e.pair.Quote = info.QuoteSymbol
}

// Tick runs one decision cycle. It returns the confirmed trade, if any. Failures are
// reported through the notifier as well as returned.
func (e *Engine) Tick(ctx context.Context) (*domain.TradeEvent, error) {
	info, err := e.c.Pricer.PairInfo(ctx, e.pair)
	if err != nil {
		return nil, e.tickFailed(ctx, errors.Wrapf(err, "pricer failed for pair %s", e.pair.String()))
	}
	price := info.Price
	if !price.IsPositive() {
		return nil, e.tickFailed(ctx, errors.Errorf("pricer returned non-positive price %s for pair %s", price, e.pair.String()))
	}
	if e.pair.Base == "" && info.BaseSymbol != "" {
		e.pair.Base, e.pair.Quote = info.BaseSymbol, info.QuoteSymbol
	}

	e.observe(price)
	band := e.bandReading()
	last, _ := price.Float64()
	metrics.SetLastPrice(last)

	if e.transferredOut(ctx) {
		if err := e.resetBuys(ctx, "manual transfer out of the wallet detected"); err != nil {
			return nil, e.tickFailed(ctx, err)
		}
	}

	var balance *domain.TokenBalance
	if !e.state.IsEmpty() {
		balance, err = e.guardUnderflow(ctx)
		if err != nil {
			return nil, e.tickFailed(ctx, err)
		}
	}

	d := domain.Decide(e.state, e.cfg.Ladder, price, band, e.paused)
	metrics.IncDecision(d.Action.String())

	var trade *domain.TradeEvent
	switch d.Action {
	case domain.ActionFirstBuy, domain.ActionRungBuy:
		trade, err = e.executeBuy(ctx, &d, price)
	case domain.ActionSell:
		trade, err = e.executeSell(ctx, &d, price, balance)
	}
	if err != nil {
		d.Reason = domain.ReasonExecutionFailed
	}

	e.logDecision(price, d, band)
	e.updateGauges()
	e.c.Notifier.Send(ctx, domain.EventTick, e.tickMessage(price, d, band, err))

	if err != nil {
		return nil, err
	}
	if trade != nil {
		e.recordTrade(ctx, trade)
	}
	return trade, nil
}

// tickFailed reports a tick that ended before a decision and returns err.
func (e *Engine) tickFailed(ctx context.Context, err error) error {
	e.c.Notifier.Send(ctx, domain.EventTick, fmt.Sprintf("%s tick failed: %v", e.pair.String(), err))
	return err
}

func (e *Engine) observe(price decimal.Decimal) {
	e.band.Observe(price)
	e.closes = append(e.closes, price)
	if len(e.closes) > rsiHistory {
		e.closes = e.closes[len(e.closes)-rsiHistory:]
	}
}

func (e *Engine) bandReading() domain.Band {
	mean, ok := e.band.Mean()
	if !ok {
		return domain.Band{}
	}
	upper, _ := e.band.UpperBand()
	lower, _ := e.band.LowerBand()
	return domain.Band{Mean: mean, Upper: upper, Lower: lower, Available: true}
}

// transferredOut advances the transfer watcher. It runs on every tick so history seen
// while no series is open is consumed then and never charged to the next series.
func (e *Engine) transferredOut(ctx context.Context) bool {
	if e.c.Watcher == nil {
		return false
	}
	moved, err := e.c.Watcher.DetectTransferOut(ctx)
	if err != nil {
		e.l.Warn("transfer watcher failed", zap.Error(err))
		return false
	}
	if moved && e.state.IsEmpty() {
		e.l.Info("transfer out while no series is open, nothing to reset")
		return false
	}
	return moved
}

// guardUnderflow clears the buys when the on-chain asset balance fell below the tolerated
// share of the recorded amount. It returns the on-chain balance.
func (e *Engine) guardUnderflow(ctx context.Context) (*domain.TokenBalance, error) {
	bal, err := e.c.Chain.AssetBalance(ctx, e.pair.AssetMint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query asset balance")
	}
	if bal.Decimals != 0 || e.assetDecimals == 0 {
		e.assetDecimals = bal.Decimals
	}

	recorded := e.state.TotalAsset()
	floor := recorded.Decimal().Mul(e.cfg.Ladder.UnderflowTolerance)
	if bal.Amount.Decimal().LessThan(floor) {
		msg := fmt.Sprintf("on-chain balance %s below %s of recorded %s", bal.Amount, e.cfg.Ladder.UnderflowTolerance, recorded)
		if err := e.resetBuys(ctx, msg); err != nil {
			return nil, err
		}
	}

	return &bal, nil
}

// resetBuys clears the buy records only; sells and the pending tip survive.
func (e *Engine) resetBuys(ctx context.Context, reason string) error {
	e.l.Warn("resetting ladder buys", zap.String("reason", reason), zap.Int("buys", len(e.state.Buys)))
	e.state.ClearBuys()
	if err := e.save(); err != nil {
		return err
	}
	e.c.Notifier.Send(ctx, domain.EventBalance, fmt.Sprintf("%s ladder reset: %s", e.pair.String(), reason))
	return nil
}

func (e *Engine) executeBuy(ctx context.Context, d *domain.Decision, price decimal.Decimal) (*domain.TradeEvent, error) {
	lamports := d.NativeAmount

	have, err := e.c.Chain.NativeBalance(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query native balance")
	}
	if have < lamports {
		e.pauseForFunds(ctx, d, fmt.Sprintf("need %s, have %s",
			domain.LamportsToNative(lamports), domain.LamportsToNative(have)))
		return nil, nil
	}

	before, err := e.c.Chain.AssetBalance(ctx, e.pair.AssetMint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query asset balance")
	}

	quote, err := e.c.Executor.Quote(ctx, domain.NativeMint, e.pair.AssetMint, domain.RawAmountFromUint64(lamports), e.cfg.Ladder.SlippageCapBps)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to quote buy of %d lamports", lamports)
	}

	e.l.Info("attempting rung buy",
		zap.Int("rung", d.RungIndex),
		zap.String("price", price.String()),
		zap.Uint64("lamports", lamports),
		zap.String("quoted_out", quote.OutAmount.String()))

	intent, err := e.journal.Prepare(&tradeIntentRecord{
		Action:       intentActionBuy,
		Price:        price,
		Time:         e.now(),
		NativeAmount: lamports,
		AssetAmount:  quote.OutAmount,
	})
	if err != nil {
		return nil, err
	}

	txID, err := e.submit(ctx, intent, "buy", func() (string, error) {
		return e.c.Executor.Execute(ctx, quote)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBenignSimulation):
			e.benign(ctx, d, err)
			return nil, nil
		case errors.Is(err, domain.ErrInsufficientFunds):
			e.pauseForFunds(ctx, d, err.Error())
			return nil, nil
		}
		return nil, errors.Wrapf(err, "buy failed for pair %s", e.pair.String())
	}

	received := quote.OutAmount
	after, err := e.c.Chain.AssetBalance(ctx, e.pair.AssetMint)
	if err != nil {
		e.l.Warn("failed to read post-buy balance, using quoted amount", zap.Error(err))
	} else if delta := after.Amount.Sub(before.Amount); !delta.IsZero() {
		received = delta
		e.assetDecimals = after.Decimals
	}

	at := e.now()
	if err := e.state.AddBuy(price, lamports, received, txID, at); err != nil {
		e.markFailed(intent, err)
		return nil, err
	}
	if err := e.save(); err != nil {
		return nil, err
	}
	e.markDone(intent)
	metrics.IncExecution("buy", "confirmed")

	ref := e.referencePrice(ctx)
	native := domain.LamportsToNative(lamports)
	return &domain.TradeEvent{
		Time:           at,
		Symbol:         e.pair.String(),
		Action:         d.Action,
		TxID:           txID,
		AssetAmount:    received.Units(e.assetDecimals),
		Price:          price,
		NativeDelta:    native.Neg(),
		NativeRefPrice: ref,
		QuoteDelta:     native.Mul(ref).Neg(),
	}, nil
}

func (e *Engine) executeSell(ctx context.Context, d *domain.Decision, price decimal.Decimal, balance *domain.TokenBalance) (*domain.TradeEvent, error) {
	amount := e.state.TotalAsset()
	if balance != nil && balance.Amount.Cmp(amount) < 0 {
		amount = balance.Amount
	}
	if amount.IsZero() {
		return nil, errors.New("nothing to sell")
	}

	quote, err := e.c.Executor.Quote(ctx, e.pair.AssetMint, domain.NativeMint, amount, e.cfg.Ladder.SlippageCapBps)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to quote sell of %s", amount)
	}

	ref, err := e.c.RefPricer.NativePrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get native reference price")
	}

	costBasis := e.state.CostBasisQuote(e.assetDecimals)
	if ok, worst, required := e.sellIsSafe(quote, ref, costBasis); !ok {
		d.Reason = domain.ReasonThinLiquidity
		metrics.IncExecution("sell", "skipped")
		e.l.Info("sell skipped, worst-case proceeds below target",
			zap.String("worst_case_quote", worst.String()),
			zap.String("required_quote", required.String()),
			zap.String("price_impact_pct", quote.PriceImpactPct.String()))
		return nil, nil
	}

	summary := e.sellSummary(quote, ref, costBasis)
	tip := tipLamports(summary.ProfitQuote, ref)

	e.l.Info("attempting sell",
		zap.String("price", price.String()),
		zap.String("amount", amount.String()),
		zap.String("avg_cost", d.AvgCost.String()),
		zap.String("expected_profit_quote", summary.ProfitQuote.String()))

	intent, err := e.journal.Prepare(&tradeIntentRecord{
		Action:      intentActionSell,
		Price:       price,
		Time:        summary.Time,
		AssetAmount: amount,
		Sell:        &summary,
		TipLamports: tip,
	})
	if err != nil {
		return nil, err
	}

	txID, err := e.submit(ctx, intent, "sell", func() (string, error) {
		return e.c.Executor.Execute(ctx, quote)
	})
	if err != nil {
		if errors.Is(err, domain.ErrBenignSimulation) {
			e.benign(ctx, d, err)
			return nil, nil
		}
		return nil, errors.Wrapf(err, "sell failed for pair %s", e.pair.String())
	}

	summary.TxID = txID
	e.applySell(summary, tip)
	if err := e.save(); err != nil {
		return nil, err
	}
	e.markDone(intent)
	metrics.IncExecution("sell", "confirmed")

	e.flushTip(ctx, ref)

	proceeds := domain.LamportsToNative(quote.OutAmount.Uint64())
	pnlPct, pnlQuote := summary.ProfitPct, summary.ProfitQuote
	return &domain.TradeEvent{
		Time:           summary.Time,
		Symbol:         e.pair.String(),
		Action:         domain.ActionSell,
		TxID:           txID,
		AssetAmount:    amount.Units(e.assetDecimals),
		Price:          price,
		NativeDelta:    proceeds,
		NativeRefPrice: ref,
		QuoteDelta:     proceeds.Mul(ref),
		PnLPct:         &pnlPct,
		PnLQuote:       &pnlQuote,
	}, nil
}

// sellIsSafe checks the worst-case proceeds against cost basis grown by the target profit and price impact.
func (e *Engine) sellIsSafe(quote domain.Quote, ref, costBasis decimal.Decimal) (bool, decimal.Decimal, decimal.Decimal) {
	hundred := decimal.NewFromInt(100)
	worst := domain.LamportsToNative(quote.WorstCaseOut.Uint64()).Mul(ref)
	factor := decimal.NewFromInt(1).
		Add(e.cfg.Ladder.SellProfitPct.Div(hundred)).
		Add(quote.PriceImpactPct.Div(hundred))
	required := costBasis.Mul(factor)
	return worst.GreaterThanOrEqual(required), worst, required
}

func (e *Engine) sellSummary(quote domain.Quote, ref, costBasis decimal.Decimal) domain.SellSummary {
	proceedsNative := domain.LamportsToNative(quote.OutAmount.Uint64())
	profitQuote := proceedsNative.Mul(ref).Sub(costBasis)
	profitPct := decimal.Zero
	if costBasis.IsPositive() {
		profitPct = profitQuote.Div(costBasis).Mul(decimal.NewFromInt(100))
	}
	return domain.SellSummary{
		Time:         e.now(),
		ProfitQuote:  profitQuote,
		ProfitNative: proceedsNative.Sub(domain.LamportsToNative(e.state.TotalNative())),
		ProfitPct:    profitPct,
	}
}

// applySell records a completed sell. A completed sell lifts the funds pause.
func (e *Engine) applySell(summary domain.SellSummary, tip uint64) {
	e.state.RecordSell(summary)
	e.state.AccrueTip(tip)
	e.paused = false
}

// submit journals and executes one transaction, then waits for settlement.
func (e *Engine) submit(ctx context.Context, intent *tradeIntentRecord, kind string, exec func() (string, error)) (string, error) {
	txID, err := exec()
	if err != nil {
		e.markFailed(intent, err)
		metrics.IncExecution(kind, executionResult(err))
		return "", err
	}

	if err := e.journal.MarkSubmitted(intent, txID); err != nil {
		e.l.Error("failed to persist submitted trade intent", zap.Error(err), zap.String("intent_id", intent.ID))
	}
	if e.c.Watcher != nil {
		e.c.Watcher.Ignore(txID)
	}

	if err := e.waitConfirmed(ctx, txID); err != nil {
		e.markFailed(intent, err)
		metrics.IncExecution(kind, "failed")
		return "", err
	}
	return txID, nil
}

func executionResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrBenignSimulation):
		return "benign"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "paused"
	default:
		return "failed"
	}
}

// waitConfirmed polls until the transaction settles, fails, or the deadline passes.
func (e *Engine) waitConfirmed(ctx context.Context, txID string) error {
	deadline := e.now().Add(e.cfg.ConfirmTimeout)
	ticker := time.NewTicker(e.cfg.ConfirmInterval)
	defer ticker.Stop()

	for {
		st, err := e.c.Chain.SignatureStatus(ctx, txID)
		switch {
		case err != nil:
			e.l.Debug("signature status query failed", zap.String("tx", txID), zap.Error(err))
		case st.Failed():
			return errors.Wrapf(domain.ErrTxFailed, "%s: %s", txID, st.Err)
		case st.Settled():
			return nil
		}

		if !e.now().Before(deadline) {
			return errors.Wrapf(domain.ErrNotConfirmed, "%s after %s", txID, e.cfg.ConfirmTimeout)
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(domain.ErrNotConfirmed, "%s: %v", txID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (e *Engine) pauseForFunds(ctx context.Context, d *domain.Decision, detail string) {
	d.Reason = domain.ReasonInsufficientFunds
	if e.paused {
		return
	}
	e.paused = true
	e.l.Info("insufficient funds, pausing rung buys", zap.String("detail", detail))
	e.c.Notifier.Send(ctx, domain.EventBalance,
		fmt.Sprintf("%s insufficient funds for rung %d (%s); buys paused until the next sell", e.pair.String(), d.RungIndex, detail))
}

func (e *Engine) benign(ctx context.Context, d *domain.Decision, err error) {
	d.Reason = domain.ReasonBenignSimulation
	e.l.Info("swap simulation rejected, skipping tick", zap.Error(err))
	e.c.Notifier.Send(ctx, domain.EventTick, fmt.Sprintf("%s %s skipped: %v", e.pair.String(), d.Action, err))
}

func (e *Engine) referencePrice(ctx context.Context) decimal.Decimal {
	ref, err := e.c.RefPricer.NativePrice(ctx)
	if err != nil {
		e.l.Warn("failed to get native reference price", zap.Error(err))
		return decimal.Zero
	}
	return ref
}

func (e *Engine) recordTrade(ctx context.Context, trade *domain.TradeEvent) {
	if e.c.Trades != nil {
		if err := e.c.Trades.Append(*trade); err != nil {
			e.l.Error("failed to append trade log", zap.Error(err))
		}
	}
	e.c.Notifier.Send(ctx, trade.Kind(), trade.String())
	e.sendBalance(ctx)
}

func (e *Engine) sendBalance(ctx context.Context) {
	native, err := e.c.Chain.NativeBalance(ctx)
	if err != nil {
		e.l.Warn("failed to read native balance", zap.Error(err))
		return
	}
	asset, err := e.c.Chain.AssetBalance(ctx, e.pair.AssetMint)
	if err != nil {
		e.l.Warn("failed to read asset balance", zap.Error(err))
		return
	}
	e.c.Notifier.Send(ctx, domain.EventBalance, fmt.Sprintf("%s balance: native %s, asset %s, pending tip %s",
		e.pair.String(),
		domain.LamportsToNative(native),
		asset.Amount.Units(asset.Decimals),
		domain.LamportsToNative(e.state.PendingTipNative.Uint64())))
}

func (e *Engine) logDecision(price decimal.Decimal, d domain.Decision, band domain.Band) {
	if e.c.Decisions == nil {
		return
	}
	if err := e.c.Decisions.Save(domain.NewDecisionEvent(e.now(), e.pair.String(), price, d, band)); err != nil {
		e.l.Warn("failed to save decision", zap.Error(err))
	}
}

func (e *Engine) save() error {
	if err := e.c.Store.Save(e.state); err != nil {
		return errors.Wrap(err, "failed to persist ladder state")
	}
	return nil
}

func (e *Engine) markDone(intent *tradeIntentRecord) {
	if err := e.journal.MarkDone(intent); err != nil {
		e.l.Error("failed to persist done trade intent", zap.Error(err), zap.String("intent_id", intent.ID))
	}
}

func (e *Engine) markFailed(intent *tradeIntentRecord, cause error) {
	if err := e.journal.MarkFailed(intent, cause); err != nil {
		e.l.Error("failed to persist failed trade intent status", zap.Error(err), zap.String("intent_id", intent.ID))
	}
}

func (e *Engine) updateGauges() {
	metrics.SetRungs(len(e.state.Buys))
	metrics.SetPendingTip(e.state.PendingTipNative.Uint64())
}

func (e *Engine) startMessage() string {
	return fmt.Sprintf("%s ladder started: %d/%s rungs held, avg cost %s, %d sells, pending tip %s",
		e.pair.String(), len(e.state.Buys), maxRungsLabel(e.cfg.Ladder), e.state.AvgCost().String(),
		len(e.state.Sells), domain.LamportsToNative(e.state.PendingTipNative.Uint64()))
}

func (e *Engine) tickMessage(price decimal.Decimal, d domain.Decision, band domain.Band, failure error) string {
	msg := fmt.Sprintf("%s price %s: %s (%s), rung %d/%s",
		e.pair.String(), price.String(), d.Action, d.Reason, len(e.state.Buys), maxRungsLabel(e.cfg.Ladder))
	if !d.AvgCost.IsZero() {
		msg += fmt.Sprintf(", avg %s, buy <= %s, sell >= %s",
			d.AvgCost.StringFixed(8), d.BuyTrigger.StringFixed(8), d.SellTrigger.StringFixed(8))
	}
	if band.Available {
		msg += fmt.Sprintf(", band %s..%s", band.Lower.StringFixed(8), band.Upper.StringFixed(8))
	}
	if rsi, ok := indicators.LatestRSI(e.closes, rsiPeriod); ok {
		msg += fmt.Sprintf(", rsi %s", rsi.StringFixed(1))
	}
	if failure != nil {
		msg += fmt.Sprintf(", error: %v", failure)
	}
	return msg
}

func maxRungsLabel(cfg domain.LadderConfig) string {
	if !cfg.Bounded() {
		return "inf"
	}
	return fmt.Sprintf("%d", cfg.MaxRungs)
}

// Close releases the trade journal.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() { err = e.journal.Close() })
	return err
}

package trader

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/internal/storage/simstate"
)

// DefaultPaperLamports funds a fresh paper wallet.
const DefaultPaperLamports = 10 * 1_000_000_000

// Prices supplies the rates the simulator fills at.
type Prices interface {
	PairInfo(ctx context.Context, pair domain.Pair) (domain.PairInfo, error)
	NativePrice(ctx context.Context) (decimal.Decimal, error)
}

// SimulateTrader is a paper executor filling swaps at the current pair price.
type SimulateTrader struct {
	mu            sync.Mutex
	l             *zap.Logger
	pair          domain.Pair
	assetDecimals uint8
	prices        Prices
	store         *simstate.Store

	native  uint64
	asset   domain.RawAmount
	settled map[string]bool

	// PriceImpactPct is reported on every quote, in percent.
	PriceImpactPct decimal.Decimal
	// withhold keeps confirmations pending, for exercising timeouts.
	withhold bool
	failNext error
}

// NewSimulateTrader creates a paper wallet. store may be nil for an in-memory wallet.
func NewSimulateTrader(l *zap.Logger, pair domain.Pair, assetDecimals uint8, prices Prices, store *simstate.Store) (*SimulateTrader, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if prices == nil {
		return nil, errors.New("prices are required for SimulateTrader")
	}

	t := &SimulateTrader{
		l:              l,
		pair:           pair,
		assetDecimals:  assetDecimals,
		prices:         prices,
		store:          store,
		native:         DefaultPaperLamports,
		settled:        make(map[string]bool),
		PriceImpactPct: decimal.Zero,
	}
	if err := t.restoreState(); err != nil {
		l.Warn("failed to restore simulate state", zap.Error(err))
	}

	l.Info("simulate init",
		zap.String("pair", pair.String()),
		zap.String("native", domain.LamportsToNative(t.native).String()),
		zap.String("asset_raw", t.asset.String()))
	return t, nil
}

func (t *SimulateTrader) restoreState() error {
	state, err := t.store.Load()
	if err != nil || state == nil {
		return err
	}
	if state.AssetMint != t.pair.AssetMint {
		return nil
	}
	t.native = state.NativeLamports
	t.asset = state.AssetAmount
	for _, id := range state.Settled {
		t.settled[id] = true
	}
	return nil
}

func (t *SimulateTrader) persist() {
	settled := make([]string, 0, len(t.settled))
	for id := range t.settled {
		settled = append(settled, id)
	}
	err := t.store.Save(simstate.State{
		AssetMint:      t.pair.AssetMint,
		NativeLamports: t.native,
		AssetAmount:    t.asset,
		Settled:        settled,
	})
	if err != nil {
		t.l.Warn("failed to persist simulate state", zap.Error(err))
	}
}

// SetBalances overrides the paper wallet.
func (t *SimulateTrader) SetBalances(lamports uint64, asset domain.RawAmount) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.native = lamports
	t.asset = asset
}

// WithholdConfirmations makes submitted transactions stay unconfirmed.
func (t *SimulateTrader) WithholdConfirmations(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.withhold = v
}

// FailNextExecution makes the next Execute or Transfer return err without side effects.
func (t *SimulateTrader) FailNextExecution(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failNext = err
}

type simRoute struct {
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	Simulated  bool   `json:"simulated"`
}

func (t *SimulateTrader) Quote(ctx context.Context, inputMint, outputMint string, amount domain.RawAmount, slippageBps int) (domain.Quote, error) {
	if amount.IsZero() {
		return domain.Quote{}, errors.New("quote amount is zero")
	}

	info, err := t.prices.PairInfo(ctx, t.pair)
	if err != nil {
		return domain.Quote{}, errors.Wrap(err, "simulate quote price")
	}
	ref, err := t.prices.NativePrice(ctx)
	if err != nil {
		return domain.Quote{}, errors.Wrap(err, "simulate quote reference price")
	}
	if !info.Price.IsPositive() || !ref.IsPositive() {
		return domain.Quote{}, errors.New("simulate quote needs positive prices")
	}

	scale := decimal.New(1, int32(t.assetDecimals))
	var out domain.RawAmount
	switch {
	case inputMint == domain.NativeMint && outputMint == t.pair.AssetMint:
		quoteValue := domain.LamportsToNative(amount.Uint64()).Mul(ref)
		out = rawFromDecimal(quoteValue.Div(info.Price).Mul(scale))
	case inputMint == t.pair.AssetMint && outputMint == domain.NativeMint:
		quoteValue := amount.Units(t.assetDecimals).Mul(info.Price)
		out = domain.RawAmountFromUint64(domain.NativeToLamports(quoteValue.Div(ref)))
	default:
		return domain.Quote{}, errors.Wrapf(domain.ErrNoRoute, "%s -> %s", inputMint, outputMint)
	}

	keep := decimal.NewFromInt(int64(10_000 - slippageBps)).Div(decimal.NewFromInt(10_000))
	worst := rawFromDecimal(out.Decimal().Mul(keep))

	raw, err := json.Marshal(simRoute{
		InputMint:  inputMint,
		OutputMint: outputMint,
		InAmount:   amount.String(),
		OutAmount:  out.String(),
		Simulated:  true,
	})
	if err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       amount,
		OutAmount:      out,
		WorstCaseOut:   worst,
		PriceImpactPct: t.PriceImpactPct,
		SlippageBps:    slippageBps,
		Raw:            raw,
	}, nil
}

func rawFromDecimal(d decimal.Decimal) domain.RawAmount {
	if !d.IsPositive() {
		return domain.RawAmount{}
	}
	return domain.NewRawAmount(d.Floor().BigInt())
}

// Execute fills quote against the paper wallet.
func (t *SimulateTrader) Execute(_ context.Context, quote domain.Quote) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.takeFailure(); err != nil {
		return "", err
	}

	switch quote.InputMint {
	case domain.NativeMint:
		spend := quote.InAmount.Uint64()
		if spend > t.native {
			return "", errors.Wrapf(domain.ErrInsufficientFunds, "need %d lamports, have %d", spend, t.native)
		}
		t.native -= spend
		t.asset = t.asset.Add(quote.OutAmount)
	default:
		if quote.InAmount.Cmp(t.asset) > 0 {
			return "", errors.Errorf("insufficient asset: need %s, have %s", quote.InAmount, t.asset)
		}
		t.asset = t.asset.Sub(quote.InAmount)
		t.native += quote.OutAmount.Uint64()
	}

	return t.submit("swap"), nil
}

// Transfer moves lamports out of the paper wallet.
func (t *SimulateTrader) Transfer(_ context.Context, dest string, lamports uint64) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.takeFailure(); err != nil {
		return "", err
	}
	if lamports > t.native {
		return "", errors.Wrapf(domain.ErrInsufficientFunds, "transfer %d lamports to %s", lamports, dest)
	}
	t.native -= lamports
	return t.submit("transfer"), nil
}

func (t *SimulateTrader) takeFailure() error {
	err := t.failNext
	t.failNext = nil
	return err
}

func (t *SimulateTrader) submit(kind string) string {
	id := "sim-" + uuid.New().String()
	if !t.withhold {
		t.settled[id] = true
	}
	t.persist()
	t.l.Debug("simulated "+kind, zap.String("tx", id), zap.Uint64("native", t.native), zap.String("asset", t.asset.String()))
	return id
}

func (t *SimulateTrader) NativeBalance(context.Context) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.native, nil
}

func (t *SimulateTrader) AssetBalance(_ context.Context, mint string) (domain.TokenBalance, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if mint != t.pair.AssetMint {
		return domain.TokenBalance{Decimals: t.assetDecimals}, nil
	}
	return domain.TokenBalance{Amount: t.asset, Decimals: t.assetDecimals}, nil
}

func (t *SimulateTrader) SignatureStatus(_ context.Context, txID string) (domain.SignatureStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.settled[txID] {
		return domain.SignatureStatus{}, nil
	}
	return domain.SignatureStatus{Found: true, ConfirmationStatus: "finalized"}, nil
}

package internal

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/config"
	"github.com/vadiminshakov/ladder/internal/clients"
	"github.com/vadiminshakov/ladder/internal/clients/jupiter"
	"github.com/vadiminshakov/ladder/internal/clients/solana"
	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/internal/services/ladder"
	"github.com/vadiminshakov/ladder/internal/services/notify"
	"github.com/vadiminshakov/ladder/internal/services/pricer"
	"github.com/vadiminshakov/ladder/internal/services/trader"
	"github.com/vadiminshakov/ladder/internal/services/watcher"
	"github.com/vadiminshakov/ladder/internal/status"
	"github.com/vadiminshakov/ladder/internal/storage/decisions"
	"github.com/vadiminshakov/ladder/internal/storage/ledger"
	"github.com/vadiminshakov/ladder/internal/storage/simstate"
	"github.com/vadiminshakov/ladder/internal/storage/tradelog"
	"github.com/vadiminshakov/ladder/pkg/retrier"
)

const (
	journalDirName   = "journal"
	decisionsDirName = "decisions"
	paperDirName     = "paper"
	tradeLogName     = "trades.csv"
	rpcBurst         = 2
	jupiterRateLimit = 1
)

// Ladder is a wired ladder instance with the resources it owns.
type Ladder struct {
	Bot    *TradingBot
	Engine *ladder.Engine

	decisions *decisions.WALStore
}

type pairPrices struct {
	pair *pricer.DexScreenerPricer
	ref  pricer.ReferencePricer
}

func (p pairPrices) PairInfo(ctx context.Context, pair domain.Pair) (domain.PairInfo, error) {
	return p.pair.PairInfo(ctx, pair)
}

func (p pairPrices) NativePrice(ctx context.Context) (decimal.Decimal, error) {
	return p.ref.NativePrice(ctx)
}

func rpcRetrier() *retrier.Retrier {
	return retrier.New(
		retrier.WithMaxRetries(3),
		retrier.WithInitialInterval(500*time.Millisecond),
		retrier.WithMaxInterval(5*time.Second),
	)
}

// NewReferencePricer combines Binance with a Bybit fallback for the native reference price.
func NewReferencePricer(l *zap.Logger, symbol string) *pricer.Fallback {
	return pricer.NewFallback(l).
		With("binance", pricer.NewBinancePricer(clients.NewBinanceClient(), symbol)).
		With("bybit", pricer.NewBybitPricer(clients.NewBybitClient(), symbol))
}

// NewLadder wires the engine and the bot loop from conf.
func NewLadder(ctx context.Context, l *zap.Logger, conf config.Config) (*Ladder, error) {
	l = l.With(zap.String("pair", conf.Pair.String()))

	rpc := solana.NewHTTPClient(conf.Solana.RPCURL,
		solana.WithRateLimit(conf.Solana.RateLimit, rpcBurst),
		solana.WithRetrier(rpcRetrier()))

	prices := pairPrices{
		pair: pricer.NewDexScreenerPricer(conf.DexScreenerURL),
		ref:  NewReferencePricer(l, conf.NativeRefSymbol),
	}

	router, err := notify.Build(l, notify.Settings{
		LogEvents:      conf.Notify.LogEvents,
		TelegramToken:  conf.Notify.TelegramToken,
		TelegramChatID: conf.Notify.TelegramChatID,
		TelegramEvents: conf.Notify.TelegramEvents,
		WebhookURL:     conf.Notify.WebhookURL,
		WebhookEvents:  conf.Notify.WebhookEvents,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build notification router")
	}
	l.Info("notification channels", zap.Strings("channels", router.Channels()))

	store, err := ledger.NewStore(l, conf.StateDir)
	if err != nil {
		return nil, err
	}
	trades, err := tradelog.NewWriter(filepath.Join(conf.StateDir, tradeLogName))
	if err != nil {
		return nil, err
	}
	decisionLog, err := decisions.NewWALStore(filepath.Join(conf.StateDir, decisionsDirName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open decision log")
	}

	collab := ladder.Collaborators{
		Pricer:    prices,
		RefPricer: prices,
		Notifier:  router,
		Store:     store,
		Decisions: decisionLog,
		Trades:    trades,
	}

	if conf.DryRun {
		sim, err := newSimulateTrader(ctx, l, conf, rpc, prices)
		if err != nil {
			_ = decisionLog.Close()
			return nil, err
		}
		collab.Executor = sim
		collab.Chain = sim
	} else {
		wallet, err := solana.ParseKeypair(conf.Solana.WalletKey)
		if err != nil {
			_ = decisionLog.Close()
			return nil, errors.Wrap(err, "failed to load wallet key")
		}
		router := jupiter.NewClient(conf.JupiterURL,
			jupiter.WithRateLimit(jupiterRateLimit, 1),
			jupiter.WithRetrier(rpcRetrier()))
		jt := trader.NewJupiterTrader(l, router, rpc, wallet, conf.Solana.TokenProgram)
		collab.Executor = jt
		collab.Chain = jt
		collab.Watcher = watcher.NewTransferWatcher(l, rpc, jt.Wallet(), conf.Pair.AssetMint)
		l.Info("wallet loaded", zap.String("address", jt.Wallet()))
	}

	engine, err := ladder.NewEngine(l, ladder.Config{
		Pair:                   conf.Pair,
		Ladder:                 conf.Ladder,
		TipDestination:         conf.Tip.Destination,
		TipFlushThresholdQuote: conf.Tip.FlushThresholdQuote,
		ConfirmInterval:        conf.Solana.ConfirmInterval,
		ConfirmTimeout:         conf.Solana.ConfirmTimeout,
		JournalDir:             filepath.Join(conf.StateDir, journalDirName),
	}, collab)
	if err != nil {
		_ = decisionLog.Close()
		return nil, errors.Wrap(err, "failed to create ladder engine")
	}

	bot, err := NewTradingBot(engine, conf.Pair.String(), conf.PollInterval)
	if err != nil {
		_ = engine.Close()
		_ = decisionLog.Close()
		return nil, err
	}

	return &Ladder{Bot: bot, Engine: engine, decisions: decisionLog}, nil
}

func newSimulateTrader(ctx context.Context, l *zap.Logger, conf config.Config, rpc *solana.HTTPClient, prices trader.Prices) (*trader.SimulateTrader, error) {
	decimals, err := rpc.GetMintDecimals(ctx, conf.Pair.AssetMint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read asset mint decimals")
	}
	paper, err := simstate.NewStore(filepath.Join(conf.StateDir, paperDirName), conf.Pair.AssetMint)
	if err != nil {
		return nil, err
	}
	l.Info("dry run: trading against a paper wallet")
	return trader.NewSimulateTrader(l, conf.Pair, decimals, prices, paper)
}

// Close stops the bot and releases the journals.
func (a *Ladder) Close() error {
	err := a.Bot.Close()
	if cerr := a.decisions.Close(); err == nil {
		err = cerr
	}
	return err
}

// PrintStatus renders the persisted ledger of conf.Pair to out. Mint decimals are read from
// the RPC when reachable; the table falls back to raw units otherwise.
func PrintStatus(ctx context.Context, l *zap.Logger, conf config.Config, out io.Writer) error {
	store, err := ledger.NewStore(l, conf.StateDir)
	if err != nil {
		return err
	}
	state, err := store.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load ledger")
	}

	var decimals uint8
	if conf.Solana.RPCURL != "" {
		rpc := solana.NewHTTPClient(conf.Solana.RPCURL, solana.WithTimeout(5*time.Second))
		if decimals, err = rpc.GetMintDecimals(ctx, conf.Pair.AssetMint); err != nil {
			l.Warn("mint decimals unavailable, showing raw amounts", zap.Error(err))
		}
	}

	status.Render(out, conf.Pair, conf.Ladder, state, decimals, time.Now())
	return nil
}

package internal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/internal/metrics"
)

// TradingEngine is one ladder instance driven by the bot loop.
type TradingEngine interface {
	Initialize(ctx context.Context) error
	Tick(ctx context.Context) (*domain.TradeEvent, error)
	Close() error
}

// TradingBot runs the engine on a fixed interval. A tick that fires while the previous one
// is still in flight is skipped.
type TradingBot struct {
	engine       TradingEngine
	pollInterval time.Duration
	pair         string

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewTradingBot creates a new trading bot instance
func NewTradingBot(engine TradingEngine, pair string, pollInterval time.Duration) (*TradingBot, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if pollInterval <= 0 {
		return nil, errors.Errorf("poll interval must be positive, got %s", pollInterval)
	}
	return &TradingBot{engine: engine, pollInterval: pollInterval, pair: pair}, nil
}

// Close waits for an in-flight tick and closes the engine.
func (b *TradingBot) Close() error {
	b.wg.Wait()
	return b.engine.Close()
}

// Run executes the trading bot until ctx is done.
func (b *TradingBot) Run(ctx context.Context, logger *zap.Logger) error {
	if err := b.engine.Initialize(ctx); err != nil {
		return errors.Wrap(err, "failed to initialize ladder engine")
	}

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	logger.Info("Starting trading loop", zap.String("pair", b.pair), zap.Duration("poll_interval", b.pollInterval))

	b.tryTick(ctx, logger)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Context done, stopping trading bot run loop.", zap.String("pair", b.pair))
			b.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			b.tryTick(ctx, logger)
		}
	}
}

func (b *TradingBot) tryTick(ctx context.Context, logger *zap.Logger) {
	if !b.running.CompareAndSwap(false, true) {
		logger.Debug("Previous tick still running, skipping", zap.String("pair", b.pair))
		metrics.IncTick("skipped")
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.running.Store(false)
		b.tick(ctx, logger)
	}()
}

func (b *TradingBot) tick(ctx context.Context, logger *zap.Logger) {
	logger.Debug("Ladder tick", zap.String("pair", b.pair))

	tradeEvent, err := b.engine.Tick(ctx)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			metrics.IncTick("canceled")
		case errors.Is(err, domain.ErrNotConfirmed), errors.Is(err, domain.ErrTxFailed), errors.Is(err, domain.ErrNoRoute):
			logger.Warn("Trade not completed, retrying next tick", zap.String("pair", b.pair), zap.Error(err))
			metrics.IncTick("trade_failed")
		default:
			logger.Error("Ladder tick failed", zap.String("pair", b.pair), zap.Error(err))
			metrics.IncTick("error")
		}
		return
	}

	metrics.IncTick("ok")
	if tradeEvent != nil {
		logger.Info("Trade event occurred", zap.String("pair", b.pair), zap.String("event", tradeEvent.String()))
	}
}

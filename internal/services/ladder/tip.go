package ladder

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/internal/metrics"
)

var tipRate = decimal.RequireFromString("0.01")

// tipLamports converts 1% of a realised profit into lamports at the reference price.
func tipLamports(profitQuote, ref decimal.Decimal) uint64 {
	if !profitQuote.IsPositive() || !ref.IsPositive() {
		return 0
	}
	return domain.NativeToLamports(profitQuote.Mul(tipRate).Div(ref))
}

// flushTip pays the pending tip out once it is worth at least the flush threshold.
// The pending amount is kept on any failure and retried after the next sell.
func (e *Engine) flushTip(ctx context.Context, ref decimal.Decimal) {
	if e.cfg.TipDestination == "" {
		return
	}
	pending := e.state.PendingTipNative.Uint64()
	if pending == 0 || !ref.IsPositive() {
		return
	}
	value := domain.LamportsToNative(pending).Mul(ref)
	if value.LessThan(e.cfg.TipFlushThresholdQuote) {
		e.l.Debug("pending tip below flush threshold",
			zap.String("value_quote", value.String()),
			zap.String("threshold", e.cfg.TipFlushThresholdQuote.String()))
		return
	}

	intent, err := e.journal.Prepare(&tradeIntentRecord{
		Action:       intentActionTip,
		Time:         e.now(),
		NativeAmount: pending,
	})
	if err != nil {
		e.l.Warn("failed to journal tip payout", zap.Error(err))
		return
	}

	txID, err := e.submit(ctx, intent, "tip", func() (string, error) {
		return e.c.Executor.Transfer(ctx, e.cfg.TipDestination, pending)
	})
	if err != nil {
		e.l.Warn("tip payout failed, keeping it pending", zap.Error(err), zap.Uint64("lamports", pending))
		return
	}

	e.settleTip(pending)
	if err := e.save(); err != nil {
		e.l.Error("failed to persist tip payout", zap.Error(err), zap.String("tx", txID))
		return
	}
	e.markDone(intent)
	metrics.IncExecution("tip", "confirmed")

	e.l.Info("tip paid", zap.String("tx", txID), zap.Uint64("lamports", pending))
	e.c.Notifier.Send(ctx, domain.EventBalance, fmt.Sprintf("%s tip of %s paid, tx %s",
		e.pair.String(), domain.LamportsToNative(pending), txID))
}

// settleTip removes a paid amount from the pending tip. Tips accrued after the payout was
// prepared stay pending.
func (e *Engine) settleTip(lamports uint64) {
	e.state.PendingTipNative = e.state.PendingTipNative.Sub(domain.RawAmountFromUint64(lamports))
}

package ladder

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/domain"
)

var (
	errNeverSubmitted = errors.New("interrupted before submission")
	errUnconfirmed    = errors.New("not confirmed at restart")
)

// reconcileTradeIntents settles intents left open by a previous run. A confirmed transaction
// that never reached the ledger is applied with its journaled amounts; everything else is
// marked failed. Buys and sells already recorded by tx id are not applied twice.
func (e *Engine) reconcileTradeIntents(ctx context.Context) {
	applied := false

	for _, intent := range e.journal.Open() {
		log := e.l.With(
			zap.String("intent_id", intent.ID),
			zap.String("action", string(intent.Action)),
			zap.String("tx", intent.TxID))

		if intent.Status == tradeIntentStatusPending || intent.TxID == "" {
			log.Warn("trade intent was never submitted, marking failed")
			e.markFailed(intent, errNeverSubmitted)
			continue
		}

		st, err := e.c.Chain.SignatureStatus(ctx, intent.TxID)
		if err != nil {
			log.Warn("failed to query trade intent status, leaving it open", zap.Error(err))
			continue
		}
		switch {
		case st.Failed():
			log.Info("trade intent failed on chain", zap.String("chain_error", st.Err))
			e.markFailed(intent, errors.Wrap(domain.ErrTxFailed, st.Err))
			continue
		case !st.Settled():
			log.Info("trade intent not confirmed, marking failed")
			e.markFailed(intent, errUnconfirmed)
			continue
		}

		if err := e.applyIntent(intent); err != nil {
			log.Error("failed to apply confirmed trade intent", zap.Error(err))
			e.markFailed(intent, err)
			continue
		}
		log.Info("confirmed trade intent reconciled")
		applied = true
		if err := e.save(); err != nil {
			log.Error("failed to persist reconciled trade", zap.Error(err))
			continue
		}
		e.markDone(intent)
	}

	if applied {
		e.updateGauges()
	}
}

func (e *Engine) applyIntent(intent *tradeIntentRecord) error {
	switch intent.Action {
	case intentActionBuy:
		if e.state.HasTx(intent.TxID) {
			return nil
		}
		return e.state.AddBuy(intent.Price, intent.NativeAmount, intent.AssetAmount, intent.TxID, intent.Time)
	case intentActionSell:
		if e.state.HasTx(intent.TxID) {
			return nil
		}
		if intent.Sell == nil {
			return errors.New("sell intent has no summary")
		}
		summary := *intent.Sell
		summary.TxID = intent.TxID
		e.applySell(summary, intent.TipLamports)
		return nil
	case intentActionTip:
		e.settleTip(intent.NativeAmount)
		return nil
	default:
		return errors.Errorf("unknown trade intent action %q", intent.Action)
	}
}

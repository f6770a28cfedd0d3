// Package watcher detects asset transfers out of the wallet that the engine did not make.
package watcher

import (
	"context"
	"math/big"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/clients/solana"
)

const pageLimit = 50

type chain interface {
	GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// TransferWatcher walks wallet signatures newer than the last seen one.
type TransferWatcher struct {
	l      *zap.Logger
	chain  chain
	wallet string
	mint   string

	mu       sync.Mutex
	lastSeen string
	ignored  map[string]struct{}
}

func NewTransferWatcher(l *zap.Logger, c chain, wallet, mint string) *TransferWatcher {
	return &TransferWatcher{
		l:       l,
		chain:   c,
		wallet:  wallet,
		mint:    mint,
		ignored: make(map[string]struct{}),
	}
}

// Ignore marks txID as made by the engine.
func (w *TransferWatcher) Ignore(txID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ignored[txID] = struct{}{}
}

// Seed starts the walk after txID, typically the engine's last journaled transaction, so
// history since then is inspected on the first call. It is a no-op once a cursor is set.
func (w *TransferWatcher) Seed(txID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastSeen == "" {
		w.lastSeen = txID
	}
}

// DetectTransferOut reports whether a foreign transaction since the previous call lowered the
// wallet's balance of the tracked mint. Without a seed the first call only records the
// current head.
func (w *TransferWatcher) DetectTransferOut(ctx context.Context) (bool, error) {
	w.mu.Lock()
	until := w.lastSeen
	w.mu.Unlock()

	opts := &solana.SignaturesOpts{Until: until, Limit: pageLimit}
	if until == "" {
		opts.Limit = 1
	}

	sigs, err := w.chain.GetSignaturesForAddress(ctx, w.wallet, opts)
	if err != nil {
		return false, errors.Wrap(err, "list wallet signatures")
	}
	if len(sigs) == 0 {
		return false, nil
	}

	head := sigs[0].Signature
	if until == "" {
		w.setHead(head)
		return false, nil
	}

	detected := false
	for _, s := range sigs {
		if s.Err != nil || w.isIgnored(s.Signature) {
			continue
		}

		tx, err := w.chain.GetTransaction(ctx, s.Signature)
		if err != nil {
			return false, errors.Wrapf(err, "get transaction %s", s.Signature)
		}
		if tx == nil || tx.Err != nil {
			continue
		}

		if w.decreased(tx) {
			w.l.Info("foreign transfer out detected", zap.String("tx", s.Signature))
			detected = true
			break
		}
	}

	w.setHead(head)
	return detected, nil
}

func (w *TransferWatcher) setHead(sig string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastSeen = sig
}

func (w *TransferWatcher) isIgnored(sig string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.ignored[sig]
	return ok
}

func (w *TransferWatcher) decreased(tx *solana.Transaction) bool {
	pre := w.sum(tx.PreTokenBalances)
	post := w.sum(tx.PostTokenBalances)
	return post.Cmp(pre) < 0
}

func (w *TransferWatcher) sum(entries []solana.TokenBalanceEntry) *big.Int {
	total := new(big.Int)
	for _, e := range entries {
		if e.Owner != w.wallet || e.Mint != w.mint {
			continue
		}
		if v, ok := new(big.Int).SetString(e.UITokenAmount.Amount, 10); ok {
			total.Add(total, v)
		}
	}
	return total
}

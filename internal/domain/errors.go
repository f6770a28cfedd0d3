package domain

import "github.com/pkg/errors"

var (
	// ErrInsufficientFunds means the wallet cannot cover the requested buy.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBenignSimulation is a known simulation failure that leaves nothing to undo.
	ErrBenignSimulation = errors.New("benign simulation error")
	// ErrNotConfirmed means the transaction did not settle before the deadline.
	ErrNotConfirmed = errors.New("transaction not confirmed")
	// ErrTxFailed means the chain reported a definitive transaction error.
	ErrTxFailed = errors.New("transaction failed")
	// ErrNoRoute means the swap router could not quote the pair.
	ErrNoRoute = errors.New("no swap route")
)

// Package trader executes swaps and transfers for the ladder.
package trader

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/clients/solana"
	"github.com/vadiminshakov/ladder/internal/domain"
)

type swapRouter interface {
	Quote(ctx context.Context, inputMint, outputMint string, amount domain.RawAmount, slippageBps int) (domain.Quote, error)
	SwapTransaction(ctx context.Context, quote domain.Quote, user string) ([]byte, error)
}

type rpc interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	TokenBalance(ctx context.Context, owner, mint string, tokenProgram solana.PublicKey) (domain.TokenBalance, error)
	GetSignatureStatus(ctx context.Context, signature string) (domain.SignatureStatus, error)
	GetLatestBlockhash(ctx context.Context) (string, error)
	SendTransaction(ctx context.Context, tx []byte) (string, error)
}

// JupiterTrader swaps through Jupiter and signs with the wallet keypair.
// It also serves chain-state queries for the wallet.
type JupiterTrader struct {
	l            *zap.Logger
	router       swapRouter
	rpc          rpc
	wallet       *solana.Keypair
	tokenProgram solana.PublicKey
}

func NewJupiterTrader(l *zap.Logger, router swapRouter, rpc rpc, wallet *solana.Keypair, tokenProgram solana.PublicKey) *JupiterTrader {
	return &JupiterTrader{
		l:            l,
		router:       router,
		rpc:          rpc,
		wallet:       wallet,
		tokenProgram: tokenProgram,
	}
}

// Wallet returns the signer address.
func (t *JupiterTrader) Wallet() string {
	return t.wallet.PublicKey().String()
}

func (t *JupiterTrader) Quote(ctx context.Context, inputMint, outputMint string, amount domain.RawAmount, slippageBps int) (domain.Quote, error) {
	if amount.IsZero() {
		return domain.Quote{}, errors.New("quote amount is zero")
	}
	return t.router.Quote(ctx, inputMint, outputMint, amount, slippageBps)
}

// Execute builds, signs and submits the swap for quote. It does not wait for confirmation.
func (t *JupiterTrader) Execute(ctx context.Context, quote domain.Quote) (string, error) {
	unsigned, err := t.router.SwapTransaction(ctx, quote, t.Wallet())
	if err != nil {
		return "", errors.Wrap(err, "build swap transaction")
	}

	signed, sig, err := solana.SignSerialized(t.wallet, unsigned)
	if err != nil {
		return "", errors.Wrap(err, "sign swap transaction")
	}

	sent, err := t.rpc.SendTransaction(ctx, signed)
	if err != nil {
		return "", err
	}
	if sent != sig {
		t.l.Warn("node returned unexpected signature", zap.String("expected", sig), zap.String("got", sent))
	}

	t.l.Debug("swap submitted",
		zap.String("tx", sig),
		zap.String("in", quote.InAmount.String()),
		zap.String("out", quote.OutAmount.String()))
	return sig, nil
}

// Transfer sends lamports to dest with a system transfer.
func (t *JupiterTrader) Transfer(ctx context.Context, dest string, lamports uint64) (string, error) {
	if lamports == 0 {
		return "", errors.New("transfer amount is zero")
	}
	to, err := solana.ParsePublicKey(dest)
	if err != nil {
		return "", err
	}

	blockhash, err := t.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", errors.Wrap(err, "get blockhash")
	}

	msg, err := solana.BuildTransferMessage(t.wallet.PublicKey(), to, lamports, blockhash)
	if err != nil {
		return "", err
	}

	tx, sig := solana.SignMessage(t.wallet, msg)
	if _, err := t.rpc.SendTransaction(ctx, tx); err != nil {
		return "", err
	}
	return sig, nil
}

func (t *JupiterTrader) NativeBalance(ctx context.Context) (uint64, error) {
	return t.rpc.GetBalance(ctx, t.Wallet())
}

func (t *JupiterTrader) AssetBalance(ctx context.Context, mint string) (domain.TokenBalance, error) {
	return t.rpc.TokenBalance(ctx, t.Wallet(), mint, t.tokenProgram)
}

func (t *JupiterTrader) SignatureStatus(ctx context.Context, txID string) (domain.SignatureStatus, error) {
	return t.rpc.GetSignatureStatus(ctx, txID)
}

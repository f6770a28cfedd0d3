// Package pricer resolves the pair price and the native reference price.
package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReferencePricer returns the price of one native unit in quote currency.
type ReferencePricer interface {
	NativePrice(ctx context.Context) (decimal.Decimal, error)
}

// Fallback asks each source in turn and returns the first positive price.
type Fallback struct {
	l       *zap.Logger
	sources []namedSource
}

type namedSource struct {
	name string
	ReferencePricer
}

// NewFallback creates an empty combinator; add sources with With.
func NewFallback(l *zap.Logger) *Fallback {
	return &Fallback{l: l}
}

// With appends a source tried after the existing ones.
func (f *Fallback) With(name string, p ReferencePricer) *Fallback {
	f.sources = append(f.sources, namedSource{name: name, ReferencePricer: p})
	return f
}

func (f *Fallback) NativePrice(ctx context.Context) (decimal.Decimal, error) {
	if len(f.sources) == 0 {
		return decimal.Zero, errors.New("no reference price sources configured")
	}

	var lastErr error
	for _, src := range f.sources {
		price, err := src.NativePrice(ctx)
		if err == nil && !price.IsPositive() {
			err = errors.Errorf("non-positive price %s", price)
		}
		if err != nil {
			f.l.Warn("reference price source failed", zap.String("source", src.name), zap.Error(err))
			lastErr = errors.Wrap(err, src.name)
			continue
		}
		return price, nil
	}

	return decimal.Zero, errors.Wrap(lastErr, "all reference price sources failed")
}

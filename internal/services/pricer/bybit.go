package pricer

import (
	"context"
	"fmt"

	"github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
)

// BybitPricer reads the native reference price from the Bybit spot ticker.
type BybitPricer struct {
	client *bybit.Client
	symbol string
}

func NewBybitPricer(client *bybit.Client, symbol string) *BybitPricer {
	return &BybitPricer{client: client, symbol: symbol}
}

func (p *BybitPricer) NativePrice(_ context.Context) (decimal.Decimal, error) {
	symbol := bybit.SymbolV5(p.symbol)

	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	if len(result.Result.Spot.List) == 0 {
		return decimal.Decimal{}, fmt.Errorf("bybit API returned empty prices for %s", p.symbol)
	}

	return decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
}

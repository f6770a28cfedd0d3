// Package clients builds the public exchange clients used for the native reference price.
package clients

import (
	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
)

// NewBinanceClient returns a client without API keys; only public market data is used.
func NewBinanceClient() *binance.Client {
	return binance.NewClient("", "")
}

func NewBybitClient() *bybit.Client {
	return bybit.NewClient()
}

package pricer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/vadiminshakov/ladder/internal/domain"
)

const DefaultDexScreenerURL = "https://api.dexscreener.com"

// DexScreenerPricer looks the tracked pool up on DexScreener.
type DexScreenerPricer struct {
	baseURL string
	chain   string
	client  *http.Client
	limiter *rate.Limiter
}

func NewDexScreenerPricer(baseURL string) *DexScreenerPricer {
	if baseURL == "" {
		baseURL = DefaultDexScreenerURL
	}
	return &DexScreenerPricer{
		baseURL: strings.TrimRight(baseURL, "/"),
		chain:   "solana",
		client:  &http.Client{Timeout: 10 * time.Second},
		// public limit is 300 requests per minute
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}
}

type dexToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

type dexPair struct {
	PairAddress string   `json:"pairAddress"`
	PriceUsd    string   `json:"priceUsd"`
	BaseToken   dexToken `json:"baseToken"`
	QuoteToken  dexToken `json:"quoteToken"`
}

// PairInfo returns the asset price in quote currency with the display symbols of the pair.
func (p *DexScreenerPricer) PairInfo(ctx context.Context, pair domain.Pair) (domain.PairInfo, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.PairInfo{}, err
	}

	endpoint := fmt.Sprintf("%s/latest/dex/pairs/%s/%s", p.baseURL, p.chain, pair.Address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PairInfo{}, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.PairInfo{}, errors.Wrap(err, "dexscreener request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.PairInfo{}, errors.Wrap(err, "read dexscreener response")
	}
	if resp.StatusCode != http.StatusOK {
		return domain.PairInfo{}, errors.Errorf("dexscreener status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Pairs []dexPair `json:"pairs"`
		Pair  *dexPair  `json:"pair"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.PairInfo{}, errors.Wrap(err, "decode dexscreener response")
	}

	found := payload.Pair
	if found == nil && len(payload.Pairs) > 0 {
		found = &payload.Pairs[0]
	}
	if found == nil {
		return domain.PairInfo{}, errors.Errorf("dexscreener has no pair %s", pair.Address)
	}

	price, err := decimal.NewFromString(found.PriceUsd)
	if err != nil {
		return domain.PairInfo{}, errors.Wrapf(err, "parse price %q", found.PriceUsd)
	}
	if !price.IsPositive() {
		return domain.PairInfo{}, errors.Errorf("non-positive price %s for %s", price, pair.Address)
	}

	return domain.PairInfo{
		Price:       price,
		BaseSymbol:  found.BaseToken.Symbol,
		QuoteSymbol: found.QuoteToken.Symbol,
	}, nil
}

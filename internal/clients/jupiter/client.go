// Package jupiter is an HTTP client for the Jupiter swap aggregator.
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/pkg/retrier"
)

const (
	DefaultBaseURL   = "https://lite-api.jup.ag/swap/v1"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 1

	noRouteCode = "COULD_NOT_FIND_ANY_ROUTE"
)

// Client requests quotes and swap transactions.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retrier *retrier.Retrier
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cl *Client) {
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetrier replaces the retry policy.
func WithRetrier(r *retrier.Retrier) Option {
	return func(cl *Client) {
		cl.retrier = r
	}
}

// NewClient builds a client for baseURL; empty means the public endpoint.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(DefaultRateLimit, 2),
		retrier: retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithInitialInterval(500*time.Millisecond),
			retrier.WithMaxInterval(5*time.Second),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type quoteResponse struct {
	InputMint            string `json:"inputMint"`
	InAmount             string `json:"inAmount"`
	OutputMint           string `json:"outputMint"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SlippageBps          int    `json:"slippageBps"`
	PriceImpactPct       string `json:"priceImpactPct"`
}

type apiError struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

// Quote asks for the best ExactIn route swapping amount of inputMint into outputMint.
func (c *Client) Quote(ctx context.Context, inputMint, outputMint string, amount domain.RawAmount, slippageBps int) (domain.Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", amount.String())
	q.Set("slippageBps", strconv.Itoa(slippageBps))
	q.Set("swapMode", "ExactIn")

	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return domain.Quote{}, errors.Wrap(err, "jupiter quote")
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Quote{}, errors.Wrap(err, "decode jupiter quote")
	}

	return toQuote(resp, body)
}

func toQuote(resp quoteResponse, raw []byte) (domain.Quote, error) {
	in, err := domain.ParseRawAmount(resp.InAmount)
	if err != nil {
		return domain.Quote{}, errors.Wrap(err, "quote inAmount")
	}
	out, err := domain.ParseRawAmount(resp.OutAmount)
	if err != nil {
		return domain.Quote{}, errors.Wrap(err, "quote outAmount")
	}
	worst := out
	if resp.OtherAmountThreshold != "" {
		worst, err = domain.ParseRawAmount(resp.OtherAmountThreshold)
		if err != nil {
			return domain.Quote{}, errors.Wrap(err, "quote otherAmountThreshold")
		}
	}

	impact := decimal.Zero
	if resp.PriceImpactPct != "" {
		impact, err = decimal.NewFromString(resp.PriceImpactPct)
		if err != nil {
			return domain.Quote{}, errors.Wrap(err, "quote priceImpactPct")
		}
	}

	return domain.Quote{
		InputMint:    resp.InputMint,
		OutputMint:   resp.OutputMint,
		InAmount:     in,
		OutAmount:    out,
		WorstCaseOut: worst,
		// API reports a fraction
		PriceImpactPct: impact.Abs().Mul(decimal.NewFromInt(100)),
		SlippageBps:    resp.SlippageBps,
		Raw:            json.RawMessage(raw),
	}, nil
}

// SwapTransaction returns the unsigned serialized swap transaction for quote with user as fee payer.
func (c *Client) SwapTransaction(ctx context.Context, quote domain.Quote, user string) ([]byte, error) {
	if len(quote.Raw) == 0 {
		return nil, errors.New("quote has no raw response to swap against")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"quoteResponse":           quote.Raw,
		"userPublicKey":           user,
		"wrapAndUnwrapSol":        true,
		"dynamicComputeUnitLimit": true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal swap request")
	}

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/swap", payload)
	if err != nil {
		return nil, errors.Wrap(err, "jupiter swap")
	}

	var resp struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode jupiter swap")
	}

	tx, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, errors.Wrap(err, "decode swap transaction")
	}
	if len(tx) == 0 {
		return nil, errors.New("empty swap transaction")
	}
	return tx, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	return retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, retrier.Permanent(err)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, retrier.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			return nil, errors.Errorf("status %d: %s", resp.StatusCode, string(body))
		}

		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		if apiErr.ErrorCode == noRouteCode {
			return nil, retrier.Permanent(errors.Wrap(domain.ErrNoRoute, apiErr.Error))
		}
		return nil, retrier.Permanent(errors.Errorf("status %d: %s", resp.StatusCode, string(body)))
	})
}

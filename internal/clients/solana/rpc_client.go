// Package solana is a minimal JSON-RPC client and wire encoder for the Solana chain.
package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/pkg/retrier"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
	DefaultRateLimit  = 8
	DefaultCommitment = "confirmed"

	codeInvalidParams     = -32602
	codeSimulationFailed  = -32002
	benignSimulationCode  = "0x1771"
	accountNotFoundMarker = "could not find account"
)

// HTTPClient talks to a Solana RPC node over HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint   string
	client     *http.Client
	retrier    *retrier.Retrier
	limiter    *rate.Limiter
	commitment string
	requestID  atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithRetrier replaces the transport retry policy.
func WithRetrier(r *retrier.Retrier) ClientOption {
	return func(c *HTTPClient) {
		c.retrier = r
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *HTTPClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithCommitment sets the commitment used for state queries.
func WithCommitment(commitment string) ClientOption {
	return func(c *HTTPClient) {
		c.commitment = commitment
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		retrier: retrier.New(
			retrier.WithMaxRetries(DefaultMaxRetries),
			retrier.WithInitialInterval(DefaultRetryDelay),
			retrier.WithMaxInterval(DefaultMaxDelay),
		),
		limiter:    rate.NewLimiter(DefaultRateLimit, DefaultRateLimit),
		commitment: DefaultCommitment,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call. Transport failures are retried, RPC errors are not.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	raw, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (json.RawMessage, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return errors.Wrapf(err, "%s", method)
	}

	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return errors.Wrapf(err, "%s: unmarshal result", method)
		}
	}

	return nil
}

func (c *HTTPClient) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, retrier.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, retrier.Permanent(errors.Wrap(err, "create request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "http request")
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.New("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, errors.Wrap(err, "unmarshal response")
	}

	if rpcResp.Error != nil {
		return nil, retrier.Permanent(rpcResp.Error)
	}

	return rpcResp.Result, nil
}

// GetBalance returns the lamport balance of address.
func (c *HTTPClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	params := []interface{}{address, map[string]interface{}{"commitment": c.commitment}}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetTokenAccountBalance returns the balance of a token account. A missing account is a zero balance.
func (c *HTTPClient) GetTokenAccountBalance(ctx context.Context, account string) (domain.TokenBalance, error) {
	var result struct {
		Value struct {
			Amount   string `json:"amount"`
			Decimals uint8  `json:"decimals"`
		} `json:"value"`
	}
	params := []interface{}{account, map[string]interface{}{"commitment": c.commitment}}
	if err := c.call(ctx, "getTokenAccountBalance", params, &result); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == codeInvalidParams && strings.Contains(rpcErr.Message, accountNotFoundMarker) {
			return domain.TokenBalance{}, nil
		}
		return domain.TokenBalance{}, err
	}

	amount, err := domain.ParseRawAmount(result.Value.Amount)
	if err != nil {
		return domain.TokenBalance{}, errors.Wrap(err, "parse token amount")
	}
	return domain.TokenBalance{Amount: amount, Decimals: result.Value.Decimals}, nil
}

// GetMintDecimals returns the decimals of a token mint.
func (c *HTTPClient) GetMintDecimals(ctx context.Context, mint string) (uint8, error) {
	var result struct {
		Value struct {
			Decimals uint8 `json:"decimals"`
		} `json:"value"`
	}
	params := []interface{}{mint, map[string]interface{}{"commitment": c.commitment}}
	if err := c.call(ctx, "getTokenSupply", params, &result); err != nil {
		return 0, err
	}
	return result.Value.Decimals, nil
}

// TokenBalance returns owner's balance of mint held in its associated token account.
func (c *HTTPClient) TokenBalance(ctx context.Context, owner, mint string, tokenProgram PublicKey) (domain.TokenBalance, error) {
	ownerKey, err := ParsePublicKey(owner)
	if err != nil {
		return domain.TokenBalance{}, err
	}
	mintKey, err := ParsePublicKey(mint)
	if err != nil {
		return domain.TokenBalance{}, err
	}
	ata, err := AssociatedTokenAddress(ownerKey, mintKey, tokenProgram)
	if err != nil {
		return domain.TokenBalance{}, err
	}
	return c.GetTokenAccountBalance(ctx, ata.String())
}

// GetSignatureStatus returns the status of one transaction, searching history when needed.
func (c *HTTPClient) GetSignatureStatus(ctx context.Context, signature string) (domain.SignatureStatus, error) {
	var result struct {
		Value []*struct {
			Slot               int64       `json:"slot"`
			Err                interface{} `json:"err"`
			ConfirmationStatus string      `json:"confirmationStatus"`
		} `json:"value"`
	}
	params := []interface{}{
		[]string{signature},
		map[string]interface{}{"searchTransactionHistory": true},
	}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return domain.SignatureStatus{}, err
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return domain.SignatureStatus{}, nil
	}

	st := result.Value[0]
	status := domain.SignatureStatus{Found: true, ConfirmationStatus: st.ConfirmationStatus}
	if st.Err != nil {
		payload, _ := json.Marshal(st.Err)
		status.Err = string(payload)
	}
	return status, nil
}

// GetSignaturesForAddress retrieves signatures for an address with pagination, newest first.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	config := map[string]interface{}{"commitment": c.commitment}
	if opts != nil {
		if opts.Before != "" {
			config["before"] = opts.Before
		}
		if opts.Until != "" {
			config["until"] = opts.Until
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	var result []struct {
		Signature string      `json:"signature"`
		Slot      int64       `json:"slot"`
		BlockTime *int64      `json:"blockTime"`
		Err       interface{} `json:"err"`
	}
	if err := c.call(ctx, "getSignaturesForAddress", []interface{}{address, config}, &result); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, len(result))
	for i, r := range result {
		sigs[i] = SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Err:       r.Err,
		}
	}
	return sigs, nil
}

// GetTransaction retrieves a parsed transaction. Returns nil when the node does not know it.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"commitment":                     c.commitment,
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result *struct {
		Slot      int64  `json:"slot"`
		BlockTime *int64 `json:"blockTime"`
		Meta      *struct {
			Err               interface{}         `json:"err"`
			PreTokenBalances  []TokenBalanceEntry `json:"preTokenBalances"`
			PostTokenBalances []TokenBalanceEntry `json:"postTokenBalances"`
		} `json:"meta"`
		Transaction *struct {
			Message *struct {
				AccountKeys []struct {
					Pubkey string `json:"pubkey"`
					Signer bool   `json:"signer"`
				} `json:"accountKeys"`
			} `json:"message"`
		} `json:"transaction"`
	}
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	tx := &Transaction{Signature: signature, Slot: result.Slot}
	if result.BlockTime != nil {
		tx.BlockTime = *result.BlockTime
	}
	if result.Meta != nil {
		tx.Err = result.Meta.Err
		tx.PreTokenBalances = result.Meta.PreTokenBalances
		tx.PostTokenBalances = result.Meta.PostTokenBalances
	}
	if result.Transaction != nil && result.Transaction.Message != nil {
		for _, k := range result.Transaction.Message.AccountKeys {
			if k.Signer {
				tx.Signers = append(tx.Signers, k.Pubkey)
			}
		}
	}
	return tx, nil
}

// GetLatestBlockhash returns a recent blockhash for building transactions.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) (string, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	params := []interface{}{map[string]interface{}{"commitment": c.commitment}}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return "", err
	}
	if result.Value.Blockhash == "" {
		return "", errors.New("empty blockhash")
	}
	return result.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction and returns its signature.
// Simulation failures are mapped onto domain errors where they have a policy meaning.
func (c *HTTPClient) SendTransaction(ctx context.Context, tx []byte) (string, error) {
	params := []interface{}{
		base64.StdEncoding.EncodeToString(tx),
		map[string]interface{}{
			"encoding":            "base64",
			"preflightCommitment": c.commitment,
		},
	}

	var sig string
	if err := c.call(ctx, "sendTransaction", params, &sig); err != nil {
		return "", classifySendError(err)
	}
	return sig, nil
}

func classifySendError(err error) error {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != codeSimulationFailed {
		return err
	}

	details := strings.ToLower(rpcErr.Message + " " + string(rpcErr.Data))
	switch {
	case strings.Contains(details, benignSimulationCode):
		return errors.Wrap(domain.ErrBenignSimulation, rpcErr.Message)
	case strings.Contains(details, "insufficient lamports"), strings.Contains(details, "insufficient funds"):
		return errors.Wrap(domain.ErrInsufficientFunds, rpcErr.Message)
	default:
		return err
	}
}

// Package custody talks to the external wallet provider that holds the
// agent's keys. Signing, transaction submission, and inclusion waiting all
// happen on the provider side; this package only ever sees wallet references
// and transaction hashes.
package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smartape/apebot/internal/domain"
)

// pollInterval is how often a submitted invocation is re-checked while the
// provider waits for inclusion.
const pollInterval = 2 * time.Second

// Client is the REST client for the custody provider API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a custody client.
//
// baseURL is the API root, e.g. "https://api.custody.example.com/v1".
// apiKey is sent as a bearer token on every request.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Wallet resolves a provider wallet reference into a handle implementing
// domain.Wallet.
func (c *Client) Wallet(ctx context.Context, ref string) (domain.Wallet, error) {
	path := fmt.Sprintf("/wallets/%s", url.PathEscape(ref))
	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("custody: get wallet %s: %w", ref, err)
	}

	var resp walletResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("custody: decode wallet: %w", err)
	}
	return &walletHandle{client: c, ref: ref, address: resp.DefaultAddress}, nil
}

// Asset returns the provider's metadata for a token contract.
func (c *Client) Asset(ctx context.Context, tokenAddress string) (domain.Asset, error) {
	path := fmt.Sprintf("/assets/%s", url.PathEscape(tokenAddress))
	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("custody: get asset %s: %w", tokenAddress, err)
	}

	var resp assetResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Asset{}, fmt.Errorf("custody: decode asset: %w", err)
	}
	return domain.Asset{
		Address:  resp.ContractAddress,
		Symbol:   resp.Symbol,
		Decimals: resp.Decimals,
	}, nil
}

// walletHandle implements domain.Wallet over the provider API.
type walletHandle struct {
	client  *Client
	ref     string
	address string
}

var _ domain.Wallet = (*walletHandle)(nil)

func (w *walletHandle) Ref() string     { return w.ref }
func (w *walletHandle) Address() string { return w.address }

// Addresses lists every address provisioned under the wallet.
func (w *walletHandle) Addresses(ctx context.Context) ([]string, error) {
	path := fmt.Sprintf("/wallets/%s/addresses", url.PathEscape(w.ref))
	body, err := w.client.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("custody: list addresses: %w", err)
	}

	var resp addressListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("custody: decode addresses: %w", err)
	}
	return resp.Addresses, nil
}

// Balance returns the whole-unit balance of token held by address.
func (w *walletHandle) Balance(ctx context.Context, address, token string) (decimal.Decimal, error) {
	path := fmt.Sprintf("/wallets/%s/balances/%s?address=%s",
		url.PathEscape(w.ref), url.PathEscape(token), url.QueryEscape(address))
	body, err := w.client.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("custody: get balance: %w", err)
	}

	var resp balanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("custody: decode balance: %w", err)
	}
	amount, err := decimal.NewFromString(resp.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("custody: parse balance %q: %w", resp.Amount, err)
	}
	return amount, nil
}

// InvokeContract submits one contract call and polls until the provider
// reports a terminal state.
func (w *walletHandle) InvokeContract(ctx context.Context, call domain.ContractCall) (domain.Invocation, error) {
	path := fmt.Sprintf("/wallets/%s/invocations", url.PathEscape(w.ref))
	body, err := w.client.doRequest(ctx, http.MethodPost, path, invocationRequest{
		ContractAddress: call.Contract,
		Method:          call.Method,
		Args:            call.Args,
	})
	if err != nil {
		return domain.Invocation{}, fmt.Errorf("custody: invoke %s.%s: %w", call.Contract, call.Method, err)
	}

	var resp invocationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Invocation{}, fmt.Errorf("custody: decode invocation: %w", err)
	}
	return w.waitInvocation(ctx, resp)
}

// EstimateGas asks the provider to estimate a call without submitting it.
func (w *walletHandle) EstimateGas(ctx context.Context, call domain.ContractCall) (domain.GasEstimate, error) {
	path := fmt.Sprintf("/wallets/%s/invocations/estimate", url.PathEscape(w.ref))
	body, err := w.client.doRequest(ctx, http.MethodPost, path, invocationRequest{
		ContractAddress: call.Contract,
		Method:          call.Method,
		Args:            call.Args,
	})
	if err != nil {
		return domain.GasEstimate{}, fmt.Errorf("custody: estimate %s.%s: %w", call.Contract, call.Method, err)
	}

	var resp estimateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.GasEstimate{}, fmt.Errorf("custody: decode estimate: %w", err)
	}
	est := domain.GasEstimate{Gas: resp.Gas}
	if resp.GasPrice != "" {
		price, ok := new(big.Int).SetString(resp.GasPrice, 10)
		if !ok {
			return domain.GasEstimate{}, fmt.Errorf("custody: parse gas price %q", resp.GasPrice)
		}
		est.GasPrice = price
	}
	return est, nil
}

// waitInvocation polls the invocation until it completes or fails. A context
// cancellation surfaces as-is so callers decide how to treat the orphaned
// transaction.
func (w *walletHandle) waitInvocation(ctx context.Context, inv invocationResponse) (domain.Invocation, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		switch inv.Status {
		case "complete":
			return domain.Invocation{TxHash: inv.TransactionHash, Success: true}, nil
		case "failed":
			return domain.Invocation{
				TxHash:  inv.TransactionHash,
				Success: false,
				Revert:  inv.RevertReason,
			}, nil
		}

		select {
		case <-ctx.Done():
			return domain.Invocation{TxHash: inv.TransactionHash}, ctx.Err()
		case <-ticker.C:
		}

		path := fmt.Sprintf("/wallets/%s/invocations/%s",
			url.PathEscape(w.ref), url.PathEscape(inv.ID))
		body, err := w.client.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return domain.Invocation{TxHash: inv.TransactionHash}, fmt.Errorf("custody: poll invocation %s: %w", inv.ID, err)
		}
		if err := json.Unmarshal(body, &inv); err != nil {
			return domain.Invocation{TxHash: inv.TransactionHash}, fmt.Errorf("custody: decode invocation: %w", err)
		}
	}
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doRequest builds, sends, and reads an HTTP request against the provider API.
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkStatus maps non-2xx HTTP status codes to errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("not found: %s (%s)", apiErr.Message, apiErr.Code)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("unauthorized: %s (%s)", apiErr.Message, apiErr.Code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited: %s (%s)", apiErr.Message, apiErr.Code)
	case http.StatusBadRequest:
		return fmt.Errorf("bad request: %s (%s)", apiErr.Message, apiErr.Code)
	default:
		return fmt.Errorf("HTTP %d: %s (%s)", statusCode, apiErr.Message, apiErr.Code)
	}
}

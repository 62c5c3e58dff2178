// Package exchange is the REST client for the order-entry endpoint of the
// exchange.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/orderbot/internal/crypto"
	"github.com/alanyoungcy/orderbot/internal/domain"
)

const exchangePath = "/exchange"

// Config selects the endpoint and credentials of a Client.
type Config struct {
	MainnetURL string
	TestnetURL string
	IsMainnet  bool
	APIKey     string
	APISecret  string
	Timeout    time.Duration
}

// Client posts signed actions to the exchange.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       crypto.RequestAuth
}

// NewClient builds a Client for the network selected by cfg.IsMainnet.
func NewClient(cfg Config) (*Client, error) {
	base := cfg.TestnetURL
	if cfg.IsMainnet {
		base = cfg.MainnetURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("exchange: invalid base url %q", base)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
		auth:       crypto.RequestAuth{Key: cfg.APIKey, Secret: cfg.APISecret},
	}, nil
}

// BaseURL returns the endpoint root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// exchangeRequest is the body posted to /exchange.
type exchangeRequest struct {
	Action       domain.OrderAction `json:"action"`
	Nonce        uint64             `json:"nonce"`
	Signature    domain.Signature   `json:"signature"`
	VaultAddress *string            `json:"vaultAddress"`
}

// SubmitOrder posts a signed order action. Network failures and gateway
// errors wrap domain.ErrTransport; any other non-2xx reply wraps
// domain.ErrSubmission.
func (c *Client) SubmitOrder(ctx context.Context, action domain.SignedAction) (domain.ExchangeResponse, error) {
	body, err := json.Marshal(exchangeRequest{
		Action:    action.Action,
		Nonce:     action.Nonce,
		Signature: action.Signature,
	})
	if err != nil {
		return domain.ExchangeResponse{}, fmt.Errorf("exchange: marshal request: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, exchangePath, body)
	if err != nil {
		return domain.ExchangeResponse{}, fmt.Errorf("exchange: submit order: %w", err)
	}

	var resp domain.ExchangeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return domain.ExchangeResponse{}, fmt.Errorf("exchange: decode response: %w", err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.auth.Headers(method, path, body) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrTransport, err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkHTTPStatus maps non-2xx codes to transport (retryable) or submission
// errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	switch statusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrTransport, statusCode, body)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrSubmission, statusCode, body)
	}
}

var _ domain.ExchangeClient = (*Client)(nil)

// Package jupiter talks to the Jupiter aggregator REST API for pricing
// and swap transaction construction.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultSwapBaseURL  = "https://api.jup.ag/swap/v1"
	defaultPriceBaseURL = "https://api.jup.ag/price/v2"

	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = 200 * time.Millisecond
)

// WSOLMint is the wrapped-SOL mint used as the input side of acquisitions.
const WSOLMint = "So11111111111111111111111111111111111111112"

// Quote is the aggregator's route quote. RawJSON carries the full response
// body, which the swap endpoint requires verbatim.
type Quote struct {
	InputMint  string
	OutputMint string
	InAmount   uint64
	OutAmount  uint64
	RawJSON    json.RawMessage
}

// Client is an HTTP client for the Jupiter swap and price APIs.
type Client struct {
	swapBaseURL  string
	priceBaseURL string
	httpClient   *http.Client
	maxRetries   int
	retryDelay   time.Duration
	log          zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSwapBaseURL overrides the swap API base URL.
func WithSwapBaseURL(u string) Option {
	return func(c *Client) { c.swapBaseURL = u }
}

// WithPriceBaseURL overrides the price API base URL.
func WithPriceBaseURL(u string) Option {
	return func(c *Client) { c.priceBaseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets how many attempts each request gets.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// NewClient creates a Jupiter API client.
func NewClient(log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		swapBaseURL:  defaultSwapBaseURL,
		priceBaseURL: defaultPriceBaseURL,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		maxRetries:   defaultMaxRetries,
		retryDelay:   defaultRetryDelay,
		log:          log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Price returns the SOL-denominated price of the mint (quoted against
// wrapped SOL, matching the cost-basis currency), or 0 when the
// aggregator has no quote for it. Absence of a price is not an error:
// callers degrade to spend-based ranking.
func (c *Client) Price(ctx context.Context, mint string) (float64, error) {
	endpoint := fmt.Sprintf("%s?ids=%s&vsToken=%s", c.priceBaseURL, url.QueryEscape(mint), WSOLMint)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Data map[string]*struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}

	entry, ok := resp.Data[mint]
	if !ok || entry == nil || entry.Price == "" {
		return 0, nil
	}

	price, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", entry.Price, err)
	}
	return price, nil
}

// GetQuote fetches an ExactIn route from inputMint to outputMint.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	endpoint := fmt.Sprintf("%s/quote?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d&swapMode=ExactIn",
		c.swapBaseURL, inputMint, outputMint, amount, slippageBps)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Error      string `json:"error"`
		InputMint  string `json:"inputMint"`
		OutputMint string `json:"outputMint"`
		InAmount   string `json:"inAmount"`
		OutAmount  string `json:"outAmount"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("quote error: %s", resp.Error)
	}

	inAmount, err := strconv.ParseUint(resp.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse inAmount %q: %w", resp.InAmount, err)
	}
	outAmount, err := strconv.ParseUint(resp.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse outAmount %q: %w", resp.OutAmount, err)
	}

	return &Quote{
		InputMint:  resp.InputMint,
		OutputMint: resp.OutputMint,
		InAmount:   inAmount,
		OutAmount:  outAmount,
		RawJSON:    json.RawMessage(body),
	}, nil
}

// BuildSwap asks the aggregator to assemble an unsigned swap transaction
// for the quote, returned base64-encoded.
func (c *Client) BuildSwap(ctx context.Context, quote *Quote, userPublicKey string, priorityFeeLamports uint64) (string, error) {
	payload := map[string]interface{}{
		"quoteResponse":             quote.RawJSON,
		"userPublicKey":             userPublicKey,
		"wrapAndUnwrapSol":          true,
		"dynamicComputeUnitLimit":   true,
		"prioritizationFeeLamports": priorityFeeLamports,
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode swap request: %w", err)
	}

	body, err := c.post(ctx, c.swapBaseURL+"/swap", reqBody)
	if err != nil {
		return "", err
	}

	var resp struct {
		Error           string `json:"error"`
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode swap response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("swap error: %s", resp.Error)
	}
	if resp.SwapTransaction == "" {
		return "", fmt.Errorf("swap response missing transaction")
	}
	return resp.SwapTransaction, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

// do retries transient failures and non-2xx responses the configured
// number of times.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.log.Debug().Err(err).Int("attempt", attempt+1).Msg("aggregator request failed")
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("aggregator returned %d: %s", resp.StatusCode, truncate(body, 200))
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("aggregator request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

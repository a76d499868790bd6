package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"finance-sim/internal/model"
)

const (
	DefaultBaseURL   = "https://cloud.iexapis.com/stable"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements Provider against an IEX Cloud compatible quote API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a quote API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-2xx answer other than 404.
type APIError struct {
	StatusCode int
	Message    string
	Symbol     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quote API error: %s (status: %d, symbol: %s)", e.Message, e.StatusCode, e.Symbol)
}

type iexQuote struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"companyName"`
	LatestPrice *float64 `json:"latestPrice"`
}

// Lookup fetches /stock/{symbol}/quote. Unknown symbols yield ErrNotFound.
func (c *Client) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return model.Quote{}, ErrNotFound
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return model.Quote{}, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("token", c.apiKey)
	reqURL := fmt.Sprintf("%s/stock/%s/quote?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.Quote{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Quote{}, fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.Quote{}, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.Quote{}, &APIError{StatusCode: resp.StatusCode, Message: string(body), Symbol: symbol}
	}

	var raw iexQuote
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return model.Quote{}, fmt.Errorf("decode quote: %w", err)
	}
	if raw.LatestPrice == nil || *raw.LatestPrice <= 0 {
		return model.Quote{}, ErrNotFound
	}

	q := model.Quote{
		Symbol: model.NormalizeSymbol(raw.Symbol),
		Name:   raw.CompanyName,
		Price:  decimal.NewFromFloat(*raw.LatestPrice),
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	c.logger.Debug("quote fetched", "symbol", q.Symbol, "price", q.Price.String())
	return q, nil
}

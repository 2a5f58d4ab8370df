package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfeller/stocksim/internal/model"
)

// ErrUnavailable is returned for every quote failure: network error,
// provider error, unknown symbol, malformed response, or a non-positive
// price. The cause is logged, never exposed.
var ErrUnavailable = errors.New("quote unavailable")

// Client provides access to the FinancialModelingPrep quote API.
// A quote is a single attempt: no retries, no caching.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new quote API client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout. Expiry surfaces as ErrUnavailable.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// fmpQuote is one element of the provider's response array. Fields the
// provider sends but we never read are omitted on purpose.
type fmpQuote struct {
	Symbol string   `json:"symbol"`
	Price  *float64 `json:"price"`
}

// GetQuote fetches the current price for one symbol. The symbol is
// trimmed and uppercased before the request.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	sym := model.NormalizeSymbol(symbol)
	if sym == "" {
		c.logger.Debug("quote rejected", "reason", "empty symbol")
		return nil, ErrUnavailable
	}

	body, err := c.fetch(ctx, sym)
	if err != nil {
		c.logger.Debug("quote fetch failed", "symbol", sym, "error", err)
		return nil, ErrUnavailable
	}

	var quotes []fmpQuote
	if err := json.Unmarshal(body, &quotes); err != nil {
		c.logger.Debug("quote response malformed", "symbol", sym, "error", err)
		return nil, ErrUnavailable
	}

	if len(quotes) == 0 || quotes[0].Price == nil {
		c.logger.Debug("quote response missing price", "symbol", sym)
		return nil, ErrUnavailable
	}

	price := decimal.NewFromFloat(*quotes[0].Price)
	if !price.IsPositive() {
		c.logger.Debug("quote price not positive", "symbol", sym, "price", price)
		return nil, ErrUnavailable
	}

	return &model.Quote{
		Symbol:    sym,
		Price:     price,
		FetchedAt: time.Now(),
	}, nil
}

// fetch performs the single HTTP attempt against the provider.
func (c *Client) fetch(ctx context.Context, symbol string) ([]byte, error) {
	query := url.Values{}
	query.Set("apikey", c.apiKey)

	fullURL := c.baseURL + "/quote/" + url.PathEscape(symbol) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider status %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return body, nil
}

// Package trading212 is the HTTP client for the Trading 212 equity
// API. Authentication is a plain API key in the Authorization header.
// History endpoints paginate with a nextPagePath cursor; the cash
// transaction history returns a bare query fragment while orders and
// dividends return a full request path.
package trading212

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"moneta/internal/infrastructure/fetch"
)

const (
	// DefaultBaseURL includes the API version prefix; paginated
	// cursors sometimes repeat it.
	DefaultBaseURL = "https://live.trading212.com/api/v0"

	defaultTimeout = 60 * time.Second
)

// Client handles communication with the Trading 212 API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Trading 212 client. baseURL may be empty to use
// the live endpoint; tests point it at a local server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
	}
}

// AccountInfo is the /equity/account/info response.
type AccountInfo struct {
	ID           int64  `json:"id"`
	CurrencyCode string `json:"currencyCode"`
}

// Cash is the /equity/account/cash response. Free is cash available
// for new orders; Blocked is cash committed to open orders.
type Cash struct {
	Free     float64 `json:"free"`
	Total    float64 `json:"total"`
	Invested float64 `json:"invested"`
	Blocked  float64 `json:"blocked"`
	PieCash  float64 `json:"pieCash"`
	PPL      float64 `json:"ppl"`
	Result   float64 `json:"result"`
}

// Position is one /equity/portfolio entry.
type Position struct {
	Ticker          string  `json:"ticker"`
	Quantity        float64 `json:"quantity"`
	AveragePrice    float64 `json:"averagePrice"`
	CurrentPrice    float64 `json:"currentPrice"`
	PPL             float64 `json:"ppl"`
	FxPPL           float64 `json:"fxPpl"`
	InitialFillDate string  `json:"initialFillDate"`
}

// CashTransaction is one /history/transactions item.
type CashTransaction struct {
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference"`
	DateTime  string  `json:"dateTime"`
}

// Order is one /equity/history/orders item. FilledValue is nil for
// orders that never (fully) executed.
type Order struct {
	FillID         string   `json:"fillId"`
	Ticker         string   `json:"ticker"`
	Status         string   `json:"status"`
	FilledQuantity float64  `json:"filledQuantity"`
	FilledValue    *float64 `json:"filledValue"`
	DateCreated    string   `json:"dateCreated"`
	DateExecuted   string   `json:"dateExecuted"`
}

// Dividend is one /history/dividends item.
type Dividend struct {
	Reference    string  `json:"reference"`
	Ticker       string  `json:"ticker"`
	Type         string  `json:"type"`
	Quantity     float64 `json:"quantity"`
	Amount       float64 `json:"amount"`
	AmountInEuro float64 `json:"amountInEuro"`
	PaidOn       string  `json:"paidOn"`
}

// page is the envelope shared by every paginated history endpoint.
type page[T any] struct {
	Items        []T    `json:"items"`
	NextPagePath string `json:"nextPagePath"`
}

func parsePage[T any](body []byte) ([]T, string, error) {
	var p page[T]
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, "", fmt.Errorf("%w: %v", fetch.ErrDecode, err)
	}
	return p.Items, p.NextPagePath, nil
}

func (c *Client) headers(apiKey string) map[string]string {
	return map[string]string{
		"Authorization": apiKey,
		"Accept":        "application/json",
	}
}

// GetAccountInfo fetches account metadata.
func (c *Client) GetAccountInfo(ctx context.Context, apiKey string) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.getJSON(ctx, apiKey, "/equity/account/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetCash fetches the account cash snapshot.
func (c *Client) GetCash(ctx context.Context, apiKey string) (*Cash, error) {
	var cash Cash
	if err := c.getJSON(ctx, apiKey, "/equity/account/cash", nil, &cash); err != nil {
		return nil, err
	}
	return &cash, nil
}

// GetPortfolio fetches all open positions.
func (c *Client) GetPortfolio(ctx context.Context, apiKey string) ([]Position, error) {
	var positions []Position
	if err := c.getJSON(ctx, apiKey, "/equity/portfolio", nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// GetTransactions walks the cash transaction history. startDate is an
// optional YYYY-MM-DD lower bound passed upstream; limit is the page
// size (0 for the upstream default).
func (c *Client) GetTransactions(ctx context.Context, apiKey, startDate string, limit int) ([]CashTransaction, error) {
	params := url.Values{}
	if startDate != "" {
		t, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
		}
		params.Set("time", t.UTC().Format(http.TimeFormat))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	w := &fetch.Walker{HTTPClient: c.httpClient, BaseURL: c.baseURL, Style: fetch.QueryMerge}
	return fetch.Walk(ctx, w, c.url("/history/transactions", params), c.headers(apiKey), parsePage[CashTransaction])
}

// GetOrders walks the filled-order history.
func (c *Client) GetOrders(ctx context.Context, apiKey string, limit int, ticker string) ([]Order, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if ticker != "" {
		params.Set("ticker", ticker)
	}

	w := &fetch.Walker{HTTPClient: c.httpClient, BaseURL: c.baseURL, Style: fetch.FullPath}
	return fetch.Walk(ctx, w, c.url("/equity/history/orders", params), c.headers(apiKey), parsePage[Order])
}

// GetDividends walks the paid-dividend history.
func (c *Client) GetDividends(ctx context.Context, apiKey string, limit int) ([]Dividend, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	w := &fetch.Walker{HTTPClient: c.httpClient, BaseURL: c.baseURL, Style: fetch.FullPath}
	return fetch.Walk(ctx, w, c.url("/history/dividends", params), c.headers(apiKey), parsePage[Dividend])
}

func (c *Client) url(path string, params url.Values) string {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// getJSON issues a single authenticated GET and decodes the response.
func (c *Client) getJSON(ctx context.Context, apiKey, path string, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, params), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, val := range c.headers(apiKey) {
		req.Header.Set(k, val)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &fetch.StatusError{
			StatusCode: resp.StatusCode,
			Message:    fetch.UpstreamMessage(body, resp.StatusCode),
		}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", fetch.ErrDecode, err)
	}
	return nil
}

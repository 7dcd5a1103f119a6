// Package pluggyai is the HTTP client for the Pluggy bank-aggregation
// API. Client credentials are exchanged for a short-lived API key on
// every call; list endpoints paginate by page number.
package pluggyai

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

	"moneta/internal/infrastructure/fetch"
)

const (
	DefaultBaseURL = "https://api.pluggy.ai"

	defaultTimeout = 60 * time.Second
	pageSize       = 500
)

// Client handles communication with the Pluggy API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
	}
}

// BankData carries the bank-specific sub-balances. A checking account's
// reported balance is the closing balance plus whatever the bank swept
// into automatic investments.
type BankData struct {
	TransferNumber               string  `json:"transferNumber"`
	ClosingBalance               float64 `json:"closingBalance"`
	AutomaticallyInvestedBalance float64 `json:"automaticallyInvestedBalance"`
}

// Account is one /accounts result.
type Account struct {
	ID           string    `json:"id"`
	ItemID       string    `json:"itemId"`
	Type         string    `json:"type"` // "BANK" or "CREDIT"
	Subtype      string    `json:"subtype"`
	Name         string    `json:"name"`
	Balance      float64   `json:"balance"`
	CurrencyCode string    `json:"currencyCode"`
	BankData     *BankData `json:"bankData,omitempty"`
}

// Transaction is one /transactions result. Amount is an absolute
// value; Type says which way the money moved.
type Transaction struct {
	ID           string  `json:"id"`
	Description  string  `json:"description"`
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currencyCode"`
	Date         string  `json:"date"`
	Type         string  `json:"type"`   // "DEBIT" or "CREDIT"
	Status       string  `json:"status"` // "PENDING" or "POSTED"
}

// pageResponse is the envelope of every paginated Pluggy listing.
type pageResponse[T any] struct {
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	Page       int `json:"page"`
	Results    []T `json:"results"`
}

// Authorize exchanges client credentials for a short-lived API key.
func (c *Client) Authorize(ctx context.Context, clientID, clientSecret string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"clientId":     clientID,
		"clientSecret": clientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &fetch.StatusError{
			StatusCode: resp.StatusCode,
			Message:    fetch.UpstreamMessage(body, resp.StatusCode),
		}
	}

	var auth struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.Unmarshal(body, &auth); err != nil {
		return "", fmt.Errorf("%w: %v", fetch.ErrDecode, err)
	}
	if auth.APIKey == "" {
		return "", fmt.Errorf("%w: auth response missing apiKey", fetch.ErrDecode)
	}
	return auth.APIKey, nil
}

// GetAccounts lists the accounts of one connected item.
func (c *Client) GetAccounts(ctx context.Context, apiKey, itemID string) ([]Account, error) {
	params := url.Values{}
	params.Set("itemId", itemID)

	w := &fetch.Walker{HTTPClient: c.httpClient, BaseURL: c.baseURL, Style: fetch.QueryMerge}
	start := c.baseURL + "/accounts?" + params.Encode()
	return fetch.Walk(ctx, w, start, c.headers(apiKey), parsePluggyPage[Account](params))
}

// GetTransactions walks every transaction page of one account.
// from is an optional YYYY-MM-DD lower bound.
func (c *Client) GetTransactions(ctx context.Context, apiKey, accountID, from string) ([]Transaction, error) {
	params := url.Values{}
	params.Set("accountId", accountID)
	params.Set("pageSize", strconv.Itoa(pageSize))
	if from != "" {
		params.Set("from", from)
	}

	w := &fetch.Walker{HTTPClient: c.httpClient, BaseURL: c.baseURL, Style: fetch.QueryMerge}
	start := c.baseURL + "/transactions?" + params.Encode()
	return fetch.Walk(ctx, w, start, c.headers(apiKey), parsePluggyPage[Transaction](params))
}

func (c *Client) headers(apiKey string) map[string]string {
	return map[string]string{
		"X-API-KEY": apiKey,
		"Accept":    "application/json",
	}
}

// parsePluggyPage adapts Pluggy's page/totalPages pagination to the
// walker's cursor model by synthesizing a query fragment for the next
// page number.
func parsePluggyPage[T any](params url.Values) func(body []byte) ([]T, string, error) {
	return func(body []byte) ([]T, string, error) {
		var p pageResponse[T]
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, "", fmt.Errorf("%w: %v", fetch.ErrDecode, err)
		}
		if p.Page >= p.TotalPages {
			return p.Results, "", nil
		}
		next := url.Values{}
		for k, vs := range params {
			next[k] = vs
		}
		next.Set("page", strconv.Itoa(p.Page+1))
		return p.Results, "?" + next.Encode(), nil
	}
}

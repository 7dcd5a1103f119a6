// Package simplefin is the HTTP client for the SimpleFIN bridge
// protocol. The credential is a full access URL with basic-auth
// userinfo embedded; a single /accounts call returns every account
// with its transactions, no pagination.
package simplefin

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

const defaultTimeout = 120 * time.Second

// Client handles communication with a SimpleFIN bridge.
type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Org identifies the institution behind an account.
type Org struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

// Transaction is one SimpleFIN transaction. Amounts are decimal
// strings; Posted is a unix timestamp.
type Transaction struct {
	ID          string `json:"id"`
	Posted      int64  `json:"posted"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Pending     bool   `json:"pending"`
}

// Account is one SimpleFIN account with its embedded transactions.
type Account struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Currency     string        `json:"currency"`
	Balance      string        `json:"balance"`
	BalanceDate  int64         `json:"balance-date"`
	Org          Org           `json:"org"`
	Transactions []Transaction `json:"transactions"`
}

// AccountSet is the /accounts response.
type AccountSet struct {
	Errors   []string  `json:"errors"`
	Accounts []Account `json:"accounts"`
}

// GetAccounts fetches every account reachable through the access URL.
// startDate is an optional YYYY-MM-DD lower bound for the embedded
// transactions; pending transactions are excluded upstream.
func (c *Client) GetAccounts(ctx context.Context, accessURL, startDate string) (*AccountSet, error) {
	u, err := url.Parse(accessURL)
	if err != nil {
		return nil, fmt.Errorf("invalid access url: %w", err)
	}

	var username, password string
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
		u.User = nil
	}

	u.Path = u.Path + "/accounts"
	params := url.Values{}
	params.Set("pending", "0")
	if startDate != "" {
		t, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
		}
		params.Set("start-date", strconv.FormatInt(t.UTC().Unix(), 10))
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if username != "" || password != "" {
		req.SetBasicAuth(username, password)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &fetch.StatusError{
			StatusCode: resp.StatusCode,
			Message:    fetch.UpstreamMessage(body, resp.StatusCode),
		}
	}

	var set AccountSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrDecode, err)
	}
	return &set, nil
}

// Package exchange converts USD-denominated amounts into the ledger
// currency. Rates come from an external exchange-rate API and are
// cached for an hour; the upstream updates at most hourly and is
// rate-limited on free plans.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"moneta/internal/domain/aggregation"
	"moneta/internal/domain/cache"
	"moneta/internal/domain/secret"
	"moneta/internal/infrastructure/fetch"
)

const (
	defaultBaseURL = "https://openexchangerates.org/api/latest.json"
	defaultTTL     = time.Hour

	base     = "USD"
	symbol   = "EUR"
	cacheKey = "usdToEurRate"
)

// Converter fetches and caches the USD->EUR rate. Concurrent callers
// during a cache miss may both hit the upstream; the call is idempotent
// and cheap relative to the cache window, so there is no single-flight
// de-duplication.
type Converter struct {
	cache      cache.Store
	secrets    secret.Store
	httpClient *http.Client
	baseURL    string
	ttl        time.Duration
	now        func() time.Time
}

func NewConverter(cacheStore cache.Store, secrets secret.Store, baseURL string, ttl time.Duration) *Converter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Converter{
		cache:      cacheStore,
		secrets:    secrets,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		ttl:        ttl,
		now:        time.Now,
	}
}

// UsdToEurRate returns the current USD->EUR conversion rate, reusing the
// cached value while it is within the TTL window.
func (c *Converter) UsdToEurRate(ctx context.Context) (decimal.Decimal, error) {
	entry, err := c.cache.Get(ctx, cacheKey)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read rate cache: %w", err)
	}
	if entry != nil && entry.Fresh(c.now(), c.ttl) {
		if rate, err := decimal.NewFromString(entry.Value); err == nil {
			return rate, nil
		}
		// An unparseable cached value is treated as a miss.
		logrus.Warnf("exchange: discarding unparseable cached rate %q", entry.Value)
	}

	appID, err := c.secrets.Get(ctx, secret.Trading212OERAppID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read exchange credential: %w", err)
	}
	if appID == "" {
		return decimal.Zero, &aggregation.MissingCredentialError{Name: secret.Trading212OERAppID}
	}

	rate, err := c.fetchRate(ctx, appID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.cache.Set(ctx, cacheKey, rate.String()); err != nil {
		// The rate is still good; the next caller simply refetches.
		logrus.Warnf("exchange: failed to cache rate: %v", err)
	}

	return rate, nil
}

func (c *Converter) fetchRate(ctx context.Context, appID string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s?app_id=%s&base=%s&symbols=%s", c.baseURL, url.QueryEscape(appID), base, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch exchange rate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read exchange rate response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, &fetch.StatusError{
			StatusCode: resp.StatusCode,
			Message:    fetch.UpstreamMessage(body, resp.StatusCode),
		}
	}

	var parsed struct {
		Rates map[string]json.Number `json:"rates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", aggregation.ErrInvalidResponse, err)
	}

	num, ok := parsed.Rates[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: missing %s rate", aggregation.ErrInvalidResponse, symbol)
	}
	rate, err := decimal.NewFromString(num.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: non-numeric %s rate %q", aggregation.ErrInvalidResponse, symbol, num.String())
	}

	return rate, nil
}

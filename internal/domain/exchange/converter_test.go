package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"moneta/internal/domain/aggregation"
	"moneta/internal/domain/cache"
	"moneta/internal/domain/secret"
)

// MockCacheStore is an in-memory cache.Store with injectable time.
type MockCacheStore struct {
	entries map[string]*cache.Entry
	now     func() time.Time
}

func NewMockCacheStore(now func() time.Time) *MockCacheStore {
	return &MockCacheStore{entries: make(map[string]*cache.Entry), now: now}
}

func (m *MockCacheStore) Get(ctx context.Context, key string) (*cache.Entry, error) {
	return m.entries[key], nil
}

func (m *MockCacheStore) Set(ctx context.Context, key, value string) error {
	m.entries[key] = &cache.Entry{Key: key, Value: value, UpdatedAt: m.now()}
	return nil
}

// MockSecretStore is an in-memory secret.Store.
type MockSecretStore struct {
	values map[string]string
}

func (m *MockSecretStore) Get(ctx context.Context, name string) (string, error) {
	return m.values[name], nil
}

func (m *MockSecretStore) Set(ctx context.Context, name, value string) error {
	m.values[name] = value
	return nil
}

func (m *MockSecretStore) Clear(ctx context.Context, name string) error {
	delete(m.values, name)
	return nil
}

func newTestConverter(t *testing.T, upstream http.HandlerFunc, appID string) (*Converter, *MockCacheStore, *int, func(time.Time)) {
	t.Helper()

	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	cacheStore := NewMockCacheStore(now)
	secrets := &MockSecretStore{values: map[string]string{}}
	if appID != "" {
		secrets.values[secret.Trading212OERAppID] = appID
	}

	c := NewConverter(cacheStore, secrets, srv.URL, time.Hour)
	c.now = now

	advance := func(to time.Time) { current = to }
	return c, cacheStore, &fetches, advance
}

func rateHandler(rate string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"base":"USD","rates":{"EUR":%s}}`, rate)
	}
}

func TestUsdToEurRate_FetchesAndCaches(t *testing.T) {
	c, _, fetches, _ := newTestConverter(t, rateHandler("0.9"), "app-id")

	rate, err := c.UsdToEurRate(context.Background())
	if err != nil {
		t.Fatalf("UsdToEurRate() failed: %v", err)
	}
	if rate.String() != "0.9" {
		t.Errorf("rate = %s, want 0.9", rate)
	}
	if *fetches != 1 {
		t.Errorf("upstream fetches = %d, want 1", *fetches)
	}

	// Second call within the TTL window: served from cache.
	again, err := c.UsdToEurRate(context.Background())
	if err != nil {
		t.Fatalf("UsdToEurRate() second call failed: %v", err)
	}
	if !again.Equal(rate) {
		t.Errorf("cached rate = %s, want identical %s", again, rate)
	}
	if *fetches != 1 {
		t.Errorf("upstream fetches after cached call = %d, want 1", *fetches)
	}
}

func TestUsdToEurRate_RefetchesAfterTTL(t *testing.T) {
	c, _, fetches, advance := newTestConverter(t, rateHandler("0.9"), "app-id")

	if _, err := c.UsdToEurRate(context.Background()); err != nil {
		t.Fatalf("UsdToEurRate() failed: %v", err)
	}

	advance(time.Date(2024, 6, 1, 13, 0, 1, 0, time.UTC)) // past the 1h window

	if _, err := c.UsdToEurRate(context.Background()); err != nil {
		t.Fatalf("UsdToEurRate() after TTL failed: %v", err)
	}
	if *fetches != 2 {
		t.Errorf("upstream fetches = %d, want 2 (one per expiry)", *fetches)
	}
}

func TestUsdToEurRate_MissingCredential(t *testing.T) {
	c, _, fetches, _ := newTestConverter(t, rateHandler("0.9"), "")

	_, err := c.UsdToEurRate(context.Background())

	var missing *aggregation.MissingCredentialError
	if !errors.As(err, &missing) {
		t.Fatalf("UsdToEurRate() error = %v, want *MissingCredentialError", err)
	}
	if missing.Name != secret.Trading212OERAppID {
		t.Errorf("missing credential name = %q, want %q", missing.Name, secret.Trading212OERAppID)
	}
	if *fetches != 0 {
		t.Errorf("upstream fetches = %d, want 0 before credential check", *fetches)
	}
}

func TestUsdToEurRate_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing rates object", `{"base":"USD"}`},
		{"missing EUR rate", `{"rates":{"GBP":0.8}}`},
		{"non-numeric rate", `{"rates":{"EUR":"zero point nine"}}`},
		{"not JSON", `<html>oops</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _, _ := newTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}, "app-id")

			_, err := c.UsdToEurRate(context.Background())
			if !errors.Is(err, aggregation.ErrInvalidResponse) {
				t.Errorf("UsdToEurRate() error = %v, want ErrInvalidResponse", err)
			}
		})
	}
}

func TestUsdToEurRate_SendsCredentials(t *testing.T) {
	var query string
	c, _, _, _ := newTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		rateHandler("0.95")(w, r)
	}, "my-app-id")

	if _, err := c.UsdToEurRate(context.Background()); err != nil {
		t.Fatalf("UsdToEurRate() failed: %v", err)
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		t.Fatalf("failed to parse upstream query %q: %v", query, err)
	}
	if values.Get("app_id") != "my-app-id" {
		t.Errorf("app_id = %q, want %q", values.Get("app_id"), "my-app-id")
	}
	if values.Get("base") != "USD" || values.Get("symbols") != "EUR" {
		t.Errorf("base/symbols = %q/%q, want USD/EUR", values.Get("base"), values.Get("symbols"))
	}
}

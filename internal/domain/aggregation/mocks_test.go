package aggregation

import (
	"context"

	"github.com/shopspring/decimal"
)

// mockSecretStore is an in-memory secret.Store for adapter tests.
type mockSecretStore struct {
	values map[string]string
}

func newMockSecretStore(values map[string]string) *mockSecretStore {
	if values == nil {
		values = map[string]string{}
	}
	return &mockSecretStore{values: values}
}

func (m *mockSecretStore) Get(ctx context.Context, name string) (string, error) {
	return m.values[name], nil
}

func (m *mockSecretStore) Set(ctx context.Context, name, value string) error {
	m.values[name] = value
	return nil
}

func (m *mockSecretStore) Clear(ctx context.Context, name string) error {
	delete(m.values, name)
	return nil
}

// stubRates is a RateSource returning a fixed rate and counting calls.
type stubRates struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (s *stubRates) UsdToEurRate(ctx context.Context) (decimal.Decimal, error) {
	s.calls++
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.rate, nil
}

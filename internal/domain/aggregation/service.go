package aggregation

import (
	"context"
	"errors"
	"sort"

	"moneta/internal/infrastructure/fetch"
)

// Service is the single entry point the rest of the application uses
// to reach external providers. It resolves the adapter for a provider
// id, runs the operation, and folds every failure into the engine's
// error taxonomy so callers never see raw transport errors.
type Service struct {
	adapters map[string]Adapter
}

func NewService(adapters ...Adapter) *Service {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Service{adapters: m}
}

// Providers returns the registered provider ids, sorted.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.adapters))
	for name := range s.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Service) lookup(provider string) (Adapter, error) {
	a, ok := s.adapters[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return a, nil
}

// Status reports whether the provider has every credential it needs.
// Never performs network I/O.
func (s *Service) Status(ctx context.Context, provider string) (Status, error) {
	a, err := s.lookup(provider)
	if err != nil {
		return Status{}, err
	}
	return a.Status(ctx)
}

// Accounts returns the provider's account balance snapshots.
func (s *Service) Accounts(ctx context.Context, provider string) ([]AccountInfo, error) {
	a, err := s.lookup(provider)
	if err != nil {
		return nil, err
	}
	accounts, err := a.Accounts(ctx)
	return accounts, s.classify(provider, err)
}

// Metadata returns the provider's raw account metadata.
func (s *Service) Metadata(ctx context.Context, provider string) (any, error) {
	a, err := s.lookup(provider)
	if err != nil {
		return nil, err
	}
	mp, ok := a.(MetadataProvider)
	if !ok {
		return nil, ErrUnsupported
	}
	data, err := mp.Metadata(ctx)
	return data, s.classify(provider, err)
}

// Cash returns the provider's raw cash snapshot.
func (s *Service) Cash(ctx context.Context, provider string) (any, error) {
	a, err := s.lookup(provider)
	if err != nil {
		return nil, err
	}
	cp, ok := a.(CashProvider)
	if !ok {
		return nil, ErrUnsupported
	}
	data, err := cp.Cash(ctx)
	return data, s.classify(provider, err)
}

// Portfolio returns open positions as canonical records.
func (s *Service) Portfolio(ctx context.Context, provider string) ([]Record, error) {
	a, err := s.lookup(provider)
	if err != nil {
		return nil, err
	}
	pp, ok := a.(PortfolioProvider)
	if !ok {
		return nil, ErrUnsupported
	}
	records, err := pp.Portfolio(ctx)
	return records, s.classify(provider, err)
}

// Transactions returns the provider's transaction history as canonical
// records, walking every page before returning.
func (s *Service) Transactions(ctx context.Context, provider string, q Query) ([]Record, error) {
	a, err := s.lookup(provider)
	if err != nil {
		return nil, err
	}
	records, err := a.Transactions(ctx, q)
	return records, s.classify(provider, err)
}

// Orders returns historical filled orders as canonical records.
func (s *Service) Orders(ctx context.Context, provider string, q Query) ([]Record, error) {
	a, err := s.lookup(provider)
	if err != nil {
		return nil, err
	}
	op, ok := a.(OrderProvider)
	if !ok {
		return nil, ErrUnsupported
	}
	records, err := op.Orders(ctx, q)
	return records, s.classify(provider, err)
}

// Dividends returns paid dividends as canonical records.
func (s *Service) Dividends(ctx context.Context, provider string, q Query) ([]Record, error) {
	a, err := s.lookup(provider)
	if err != nil {
		return nil, err
	}
	dp, ok := a.(DividendProvider)
	if !ok {
		return nil, ErrUnsupported
	}
	records, err := dp.Dividends(ctx, q)
	return records, s.classify(provider, err)
}

// classify folds an adapter failure into the engine's error taxonomy.
// Taxonomy errors pass through; transport-level failures become
// UpstreamError carrying the provider's message when one was present.
func (s *Service) classify(provider string, err error) error {
	if err == nil {
		return nil
	}

	var missing *MissingCredentialError
	if errors.As(err, &missing) {
		return err
	}
	if errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrPaginationLimit) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, fetch.ErrPageLimit) {
		return ErrPaginationLimit
	}
	if errors.Is(err, fetch.ErrDecode) {
		return ErrInvalidResponse
	}

	var status *fetch.StatusError
	if errors.As(err, &status) {
		return &UpstreamError{Provider: provider, Message: status.Message, StatusCode: status.StatusCode}
	}

	return &UpstreamError{Provider: provider, Message: err.Error()}
}

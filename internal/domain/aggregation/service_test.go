package aggregation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"moneta/internal/infrastructure/fetch"
)

// fakeAdapter implements only the base Adapter interface so that
// capability lookups can be exercised. err, when set, is returned by
// every operation.
type fakeAdapter struct {
	name string
	err  error
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Status(ctx context.Context) (Status, error) {
	return Status{Configured: true}, f.err
}

func (f *fakeAdapter) Accounts(ctx context.Context) ([]AccountInfo, error) {
	return nil, f.err
}

func (f *fakeAdapter) Transactions(ctx context.Context, q Query) ([]Record, error) {
	return nil, f.err
}

func TestServiceProviders_Sorted(t *testing.T) {
	svc := NewService(
		&fakeAdapter{name: "simplefin"},
		&fakeAdapter{name: "trading212"},
		&fakeAdapter{name: "pluggyai"},
	)

	want := []string{"pluggyai", "simplefin", "trading212"}
	if got := svc.Providers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Providers() = %v, want %v", got, want)
	}
}

func TestServiceUnknownProvider(t *testing.T) {
	svc := NewService(&fakeAdapter{name: "trading212"})

	_, err := svc.Transactions(context.Background(), "monzo", Query{})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Transactions(monzo) error = %v, want ErrUnknownProvider", err)
	}
	_, err = svc.Status(context.Background(), "monzo")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Status(monzo) error = %v, want ErrUnknownProvider", err)
	}
}

func TestServiceUnsupportedOperations(t *testing.T) {
	svc := NewService(&fakeAdapter{name: "bank"})
	ctx := context.Background()

	ops := map[string]func() error{
		"Metadata":  func() error { _, err := svc.Metadata(ctx, "bank"); return err },
		"Cash":      func() error { _, err := svc.Cash(ctx, "bank"); return err },
		"Portfolio": func() error { _, err := svc.Portfolio(ctx, "bank"); return err },
		"Orders":    func() error { _, err := svc.Orders(ctx, "bank", Query{}); return err },
		"Dividends": func() error { _, err := svc.Dividends(ctx, "bank", Query{}); return err },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrUnsupported) {
			t.Errorf("%s on a cash-only adapter: error = %v, want ErrUnsupported", name, err)
		}
	}

	// The base operations still work.
	if _, err := svc.Transactions(ctx, "bank", Query{}); err != nil {
		t.Errorf("Transactions() failed: %v", err)
	}
	if _, err := svc.Accounts(ctx, "bank"); err != nil {
		t.Errorf("Accounts() failed: %v", err)
	}
}

func TestServiceClassify(t *testing.T) {
	missing := &MissingCredentialError{Name: "trading212_apiKey"}

	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{
			name: "taxonomy errors pass through",
			err:  missing,
			check: func(t *testing.T, err error) {
				var got *MissingCredentialError
				if !errors.As(err, &got) || got.Name != missing.Name {
					t.Errorf("error = %v, want the original MissingCredentialError", err)
				}
			},
		},
		{
			name: "wrapped invalid response passes through",
			err:  fmt.Errorf("%w: unparseable date", ErrInvalidResponse),
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrInvalidResponse) {
					t.Errorf("error = %v, want ErrInvalidResponse", err)
				}
			},
		},
		{
			name: "page limit maps to pagination limit",
			err:  fmt.Errorf("walking pages: %w", fetch.ErrPageLimit),
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrPaginationLimit) {
					t.Errorf("error = %v, want ErrPaginationLimit", err)
				}
			},
		},
		{
			name: "decode failure maps to invalid response",
			err:  fmt.Errorf("page 3: %w", fetch.ErrDecode),
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrInvalidResponse) {
					t.Errorf("error = %v, want ErrInvalidResponse", err)
				}
			},
		},
		{
			name: "status error carries message and code",
			err:  &fetch.StatusError{StatusCode: 429, Message: "rate limited"},
			check: func(t *testing.T, err error) {
				var up *UpstreamError
				if !errors.As(err, &up) {
					t.Fatalf("error = %v, want *UpstreamError", err)
				}
				if up.Provider != "bank" || up.Message != "rate limited" || up.StatusCode != 429 {
					t.Errorf("UpstreamError = %+v", up)
				}
			},
		},
		{
			name: "context cancellation passes through",
			err:  context.Canceled,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, context.Canceled) {
					t.Errorf("error = %v, want context.Canceled", err)
				}
			},
		},
		{
			name: "anything else becomes an upstream error",
			err:  errors.New("connection refused"),
			check: func(t *testing.T, err error) {
				var up *UpstreamError
				if !errors.As(err, &up) {
					t.Fatalf("error = %v, want *UpstreamError", err)
				}
				if up.Message != "connection refused" || up.StatusCode != 0 {
					t.Errorf("UpstreamError = %+v", up)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&fakeAdapter{name: "bank", err: tt.err})
			_, err := svc.Transactions(context.Background(), "bank", Query{})
			if err == nil {
				t.Fatal("expected an error")
			}
			tt.check(t, err)
		})
	}
}

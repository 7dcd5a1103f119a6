package aggregation

import (
	"context"

	"github.com/shopspring/decimal"
)

// Query carries the caller's filters for history operations. All
// fields are optional; zero values mean "no filter".
type Query struct {
	StartDate string // YYYY-MM-DD lower bound
	Limit     int    // page size hint for providers that take one
	Ticker    string // instrument filter, brokerage only
}

// Adapter is the capability set every provider implements. Status
// reports credential presence only and never performs network I/O; the
// data operations read credentials from the store on every call so a
// rotated or cleared secret takes effect immediately.
type Adapter interface {
	Name() string
	Status(ctx context.Context) (Status, error)
	Accounts(ctx context.Context) ([]AccountInfo, error)
	Transactions(ctx context.Context, q Query) ([]Record, error)
}

// MetadataProvider exposes the provider's raw account metadata.
type MetadataProvider interface {
	Metadata(ctx context.Context) (any, error)
}

// CashProvider exposes the provider's raw cash snapshot.
type CashProvider interface {
	Cash(ctx context.Context) (any, error)
}

// PortfolioProvider lists open positions as canonical records.
type PortfolioProvider interface {
	Portfolio(ctx context.Context) ([]Record, error)
}

// OrderProvider lists historical filled orders as canonical records.
type OrderProvider interface {
	Orders(ctx context.Context, q Query) ([]Record, error)
}

// DividendProvider lists paid dividends as canonical records.
type DividendProvider interface {
	Dividends(ctx context.Context, q Query) ([]Record, error)
}

// RateSource supplies the USD->EUR conversion rate used when a provider
// prices values in USD.
type RateSource interface {
	UsdToEurRate(ctx context.Context) (decimal.Decimal, error)
}

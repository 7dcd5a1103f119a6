// Package aggregation normalizes balances and transaction-like records
// from external financial data providers into one canonical shape the
// rest of the application can display and reconcile against locally
// stored accounts. Each provider is wrapped by an Adapter that knows
// its authentication, pagination and record layout; the Service façade
// selects the adapter by provider id and hides the differences.
package aggregation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the originating record type. Downstream logic is
// polymorphic over this set only, never over provider identity.
type Kind string

const (
	KindCash       Kind = "cash"
	KindInvestment Kind = "investment"
	KindOrder      Kind = "order"
	KindDividend   Kind = "dividend"
)

// Record is the canonical transaction-like unit returned to callers.
//
// ExternalID is the provider-assigned identifier, stable within a
// provider+account scope; de-duplication against already imported
// records happens downstream and relies on that stability. Amount is in
// the target ledger currency with outflows negative and inflows
// positive (order fills are paid for, hence negative).
type Record struct {
	ExternalID string          `json:"externalId"`
	Date       string          `json:"date"` // calendar date, YYYY-MM-DD
	PayeeName  string          `json:"payeeName"`
	Amount     decimal.Decimal `json:"amount"`
	Kind       Kind            `json:"kind"`
	Booked     bool            `json:"booked"`
}

// AccountInfo is a provider account balance snapshot. Some providers
// synthesize several of these from one upstream response (e.g. a
// brokerage cash position split into free and committed cash).
type AccountInfo struct {
	ExternalID string          `json:"externalId"`
	Name       string          `json:"name"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   string          `json:"currency"`
}

// Status reports whether a provider has every credential it needs.
// Computed from credential presence alone, never from a live call.
type Status struct {
	Configured bool `json:"configured"`
}

// civilDate normalizes a provider timestamp to the canonical calendar
// date representation used by Record.Date.
func civilDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// parseCivilDate extracts the calendar date from a provider timestamp
// string, accepting RFC 3339 (with or without sub-second precision) and
// bare dates.
func parseCivilDate(s string) (string, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return civilDate(t), nil
		}
	}
	return "", fmt.Errorf("%w: unparseable date %q", ErrInvalidResponse, s)
}

package aggregation

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across providers.
var (
	// ErrInvalidResponse marks a malformed or unexpected upstream
	// payload. Hard failure, never retried automatically.
	ErrInvalidResponse = errors.New("invalid upstream response")

	// ErrPaginationLimit is the defensive guard against a provider
	// that never stops returning next-page cursors.
	ErrPaginationLimit = errors.New("pagination limit exceeded")

	// ErrUnknownProvider is returned by the façade for provider ids
	// it has no adapter for.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnsupported is returned when a provider has no endpoint for
	// the requested data kind (e.g. bank aggregators have no orders).
	ErrUnsupported = errors.New("operation not supported by provider")
)

// MissingCredentialError reports that a required secret is absent from
// the credential store. Recoverable by the user (re)configuring it;
// surfaced to the caller, never retried.
type MissingCredentialError struct {
	Name string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("credential %s is not set", e.Name)
}

// UpstreamError reports a non-2xx or transport failure from a provider.
// Message carries the provider's own error message when one was
// present, otherwise the transport error text. StatusCode is zero for
// transport-level failures.
type UpstreamError struct {
	Provider   string
	Message    string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s upstream error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s upstream error: %s", e.Provider, e.Message)
}

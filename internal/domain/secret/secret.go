// Package secret defines the credential store consumed by provider
// integrations. Secrets are configured by the operator at runtime and
// may be rotated or cleared at any moment, so callers must re-read them
// on every use instead of holding values in memory.
package secret

import "context"

// Known secret names. One namespace shared by every provider.
const (
	Trading212APIKey   = "trading212_apiKey"
	Trading212OERAppID = "trading212_oerAppId"
	PluggyClientID     = "pluggyai_clientId"
	PluggyClientSecret = "pluggyai_clientSecret"
	PluggyItemIDs      = "pluggyai_itemIds"
	SimpleFINAccessKey = "simplefin_accessKey"
)

// Store is the persistence contract for secrets. Get returns an empty
// string (and no error) when the secret has never been set or has been
// cleared; absence is an expected condition, not a failure.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	Clear(ctx context.Context, name string) error
}

// Package cache defines the time-stamped key/value cache used to avoid
// re-fetching slow or rate-limited auxiliary data (e.g. a daily
// exchange rate). The cache itself has no notion of expiry: every Set
// stamps the current time and callers decide how old is too old for
// their own purpose.
package cache

import (
	"context"
	"time"
)

// Entry is a single cached value. UpdatedAt is the time of the last
// successful Set for this key.
type Entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Fresh reports whether the entry was written within the given window.
func (e *Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.UpdatedAt) < ttl
}

// Store is the persistence contract for cache entries. Get returns nil
// (and no error) when the key has never been written. Set overwrites
// unconditionally, last write wins.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key, value string) error
}

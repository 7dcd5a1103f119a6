package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"moneta/internal/domain/cache"
)

// CacheRepository persists cache entries in the global_cache table, one
// row per key. updated_at is stored as unix milliseconds.
type CacheRepository struct {
	db *DB
}

func NewCacheRepository(db *DB) *CacheRepository {
	return &CacheRepository{db: db}
}

var _ cache.Store = (*CacheRepository)(nil)

// Get returns the entry for key, or nil if the key was never written.
func (r *CacheRepository) Get(ctx context.Context, key string) (*cache.Entry, error) {
	query := `
		SELECT value, updated_at
		FROM global_cache
		WHERE key = $1
	`

	var value string
	var updatedAt int64
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entry: %w", err)
	}

	return &cache.Entry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.UnixMilli(updatedAt),
	}, nil
}

// Set overwrites the entry for key, stamping the current time.
func (r *CacheRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO global_cache (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3
	`

	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

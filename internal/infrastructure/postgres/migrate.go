package postgres

import (
	"context"
	"fmt"
)

// Migrate creates the tables the aggregation engine needs. Statements
// are idempotent so this runs unconditionally at startup.
func (db *DB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS global_cache (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS secrets (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}

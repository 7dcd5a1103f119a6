package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"moneta/internal/domain/secret"
	"moneta/internal/infrastructure/crypto"
)

// SecretRepository persists provider credentials in the secrets table.
// Values are encrypted at rest; a missing row reads back as an empty
// string since absence of a credential is an expected state.
type SecretRepository struct {
	db        *DB
	encryptor *crypto.Encryptor
}

func NewSecretRepository(db *DB, encryptor *crypto.Encryptor) *SecretRepository {
	return &SecretRepository{db: db, encryptor: encryptor}
}

var _ secret.Store = (*SecretRepository)(nil)

func (r *SecretRepository) Get(ctx context.Context, name string) (string, error) {
	query := `
		SELECT value
		FROM secrets
		WHERE name = $1
	`

	var encrypted string
	err := r.db.QueryRowContext(ctx, query, name).Scan(&encrypted)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query secret: %w", err)
	}

	value, err := r.encryptor.Decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret %s: %w", name, err)
	}
	return value, nil
}

func (r *SecretRepository) Set(ctx context.Context, name, value string) error {
	encrypted, err := r.encryptor.Encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt secret %s: %w", name, err)
	}

	query := `
		INSERT INTO secrets (name, value)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = $2
	`

	if _, err := r.db.ExecContext(ctx, query, name, encrypted); err != nil {
		return fmt.Errorf("failed to upsert secret: %w", err)
	}
	return nil
}

func (r *SecretRepository) Clear(ctx context.Context, name string) error {
	query := `
		DELETE FROM secrets
		WHERE name = $1
	`

	if _, err := r.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("failed to clear secret: %w", err)
	}
	return nil
}

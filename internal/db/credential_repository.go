package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CredentialRepository persists the auth_users table and implements
// authn.UserCredentialRepository.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// Lookup returns the raw stored value for a lower-cased user name.
func (r *CredentialRepository) Lookup(ctx context.Context, nameLower string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM auth_users WHERE name_lower = $1`, nameLower,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("looking up auth user %q: %w", nameLower, err)
	}
	return value, true, nil
}

// Set upserts the stored value for a user name. No code path in the
// server itself calls it.
func (r *CredentialRepository) Set(ctx context.Context, name, value string) error {
	nameLower := strings.ToLower(name)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_users (name_lower, value) VALUES ($1, $2)
		 ON CONFLICT (name_lower) DO UPDATE SET value = EXCLUDED.value`,
		nameLower, value,
	)
	if err != nil {
		return fmt.Errorf("setting auth user %q: %w", nameLower, err)
	}
	return nil
}

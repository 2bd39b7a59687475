package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GroupDefRepository persists the group_defs table: per-group
// capability assignments.
type GroupDefRepository struct {
	pool *pgxpool.Pool
}

// NewGroupDefRepository creates a new group definition repository.
func NewGroupDefRepository(pool *pgxpool.Pool) *GroupDefRepository {
	return &GroupDefRepository{pool: pool}
}

// Capability returns group's configured value for capability, if set.
func (r *GroupDefRepository) Capability(ctx context.Context, group, capability string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM group_defs WHERE group_name = $1 AND capability = $2`,
		group, capability,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("looking up capability %s/%s: %w", group, capability, err)
	}
	return value, true, nil
}

// SetCapability upserts group's value for capability.
func (r *GroupDefRepository) SetCapability(ctx context.Context, group, capability, value string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO group_defs (group_name, capability, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (group_name, capability) DO UPDATE SET value = EXCLUDED.value`,
		group, capability, value,
	)
	if err != nil {
		return fmt.Errorf("setting capability %s/%s: %w", group, capability, err)
	}
	return nil
}

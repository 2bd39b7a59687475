package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Staff scopes, mirroring staff.conf's sections.
const (
	StaffScopeArena       = "arena"
	StaffScopeArenaList   = "arena_list"
	StaffScopeGlobal      = "global"
	StaffScopeGroupPasswd = "group_password"
)

// StaffRepository persists the staff_grants table: per-(scope,
// subject) group assignments for player names, plus group passwords.
type StaffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository creates a new staff repository.
func NewStaffRepository(pool *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

// LookupGroup returns the group assigned to nameLower within
// (scope, subject), if any.
func (r *StaffRepository) LookupGroup(ctx context.Context, scope, subject, nameLower string) (string, bool, error) {
	var group string
	err := r.pool.QueryRow(ctx,
		`SELECT group_name FROM staff_grants WHERE scope = $1 AND subject = $2 AND name_lower = $3`,
		scope, subject, nameLower,
	).Scan(&group)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("looking up staff grant %s/%s/%s: %w", scope, subject, nameLower, err)
	}
	return group, true, nil
}

// SetGroup upserts a persistent group assignment.
func (r *StaffRepository) SetGroup(ctx context.Context, scope, subject, nameLower, group string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO staff_grants (scope, subject, name_lower, group_name)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (scope, subject, name_lower) DO UPDATE SET group_name = EXCLUDED.group_name`,
		scope, subject, nameLower, group,
	)
	if err != nil {
		return fmt.Errorf("setting staff grant %s/%s/%s: %w", scope, subject, nameLower, err)
	}
	return nil
}

// GroupPassword returns the configured password for a group, stored
// under the StaffScopeGroupPasswd scope keyed by group name.
func (r *StaffRepository) GroupPassword(ctx context.Context, group string) (string, bool, error) {
	var password string
	err := r.pool.QueryRow(ctx,
		`SELECT group_name FROM staff_grants WHERE scope = $1 AND subject = $2 AND name_lower = ''`,
		StaffScopeGroupPasswd, group,
	).Scan(&password)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("looking up group password %q: %w", group, err)
	}
	return password, true, nil
}

// Package capability implements the per-player group/permission
// resolution system: which group a player belongs to in a
// given arena, and what that group can do.
package capability

import "context"

// DefaultGroup is assigned when no staff grant resolves.
const DefaultGroup = "default"

// Source identifies which resolution step produced a player's group.
type Source int

const (
	SourceDefault Source = iota
	SourceArena
	SourceArenaList
	SourceGlobal
)

func (s Source) String() string {
	switch s {
	case SourceArena:
		return "arena"
	case SourceArenaList:
		return "arena_list"
	case SourceGlobal:
		return "global"
	default:
		return "default"
	}
}

// StaffRepository resolves a player's assigned group within a scope,
// and persists group changes. Implemented by db.StaffRepository.
type StaffRepository interface {
	LookupGroup(ctx context.Context, scope, subject, nameLower string) (group string, found bool, err error)
	SetGroup(ctx context.Context, scope, subject, nameLower, group string) error
	GroupPassword(ctx context.Context, group string) (password string, found bool, err error)
}

// GroupDefRepository resolves a group's capability values. Implemented
// by db.GroupDefRepository.
type GroupDefRepository interface {
	Capability(ctx context.Context, group, capability string) (value string, found bool, err error)
}

// Staff scopes, matching db.StaffScope* (kept as a parallel constant
// set so this package has no import-time dependency on internal/db).
const (
	ScopeArena     = "arena"
	ScopeArenaList = "arena_list"
	ScopeGlobal    = "global"
)

const higherThanPrefix = "higher_than_"

// Resolver resolves groups and capabilities for players.
type Resolver struct {
	staff     StaffRepository
	groupDefs GroupDefRepository

	// useArenaList enables the optional arena-config staff section
	// resolution step; disabled by default since it
	// requires per-arena config wiring that is off by default.
	useArenaList bool
}

// NewResolver constructs a capability Resolver.
func NewResolver(staff StaffRepository, groupDefs GroupDefRepository) *Resolver {
	return &Resolver{staff: staff, groupDefs: groupDefs}
}

// EnableArenaListStep turns on resolution step 2: the arena
// config's own staff section, consulted between the arena staff table
// and the global staff table.
func (r *Resolver) EnableArenaListStep(enabled bool) {
	r.useArenaList = enabled
}

// ResolveGroup resolves a player's group on arena entry or connect. If
// the player is not authenticated, resolution is skipped and the group
// is DefaultGroup.
func (r *Resolver) ResolveGroup(ctx context.Context, arenaBaseName, nameLower string, authenticated bool) (string, Source, error) {
	if !authenticated {
		return DefaultGroup, SourceDefault, nil
	}

	if group, found, err := r.staff.LookupGroup(ctx, ScopeArena, arenaBaseName, nameLower); err != nil {
		return "", SourceDefault, err
	} else if found && group != "" {
		return group, SourceArena, nil
	}

	if r.useArenaList {
		if group, found, err := r.staff.LookupGroup(ctx, ScopeArenaList, arenaBaseName, nameLower); err != nil {
			return "", SourceDefault, err
		} else if found && group != "" {
			return group, SourceArenaList, nil
		}
	}

	if group, found, err := r.staff.LookupGroup(ctx, ScopeGlobal, "", nameLower); err != nil {
		return "", SourceDefault, err
	} else if found && group != "" {
		return group, SourceGlobal, nil
	}

	return DefaultGroup, SourceDefault, nil
}

// HasCapability reports whether group has any non-empty value set for
// capability.
func (r *Resolver) HasCapability(ctx context.Context, group, capability string) (bool, error) {
	value, found, err := r.groupDefs.Capability(ctx, group, capability)
	if err != nil {
		return false, err
	}
	return found && value != "", nil
}

// HigherThan reports whether groupA is configured as higher than
// groupB.
func (r *Resolver) HigherThan(ctx context.Context, groupA, groupB string) (bool, error) {
	return r.HasCapability(ctx, groupA, higherThanPrefix+groupB)
}

// CheckGroupPassword compares pw against group's configured password.
func (r *Resolver) CheckGroupPassword(ctx context.Context, group, pw string) (bool, error) {
	want, found, err := r.staff.GroupPassword(ctx, group)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return want == pw, nil
}

package capability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssvr/zoneserver/internal/player"
)

type fakeStaff struct {
	groups    map[string]string // scope/subject/name -> group
	passwords map[string]string // group -> password
}

func newFakeStaff() *fakeStaff {
	return &fakeStaff{groups: make(map[string]string), passwords: make(map[string]string)}
}

func key(scope, subject, name string) string { return scope + "/" + subject + "/" + name }

func (f *fakeStaff) LookupGroup(ctx context.Context, scope, subject, nameLower string) (string, bool, error) {
	g, ok := f.groups[key(scope, subject, nameLower)]
	return g, ok, nil
}

func (f *fakeStaff) SetGroup(ctx context.Context, scope, subject, nameLower, group string) error {
	f.groups[key(scope, subject, nameLower)] = group
	return nil
}

func (f *fakeStaff) GroupPassword(ctx context.Context, group string) (string, bool, error) {
	pw, ok := f.passwords[group]
	return pw, ok, nil
}

type fakeGroupDefs struct {
	caps map[string]string // group/capability -> value
}

func newFakeGroupDefs() *fakeGroupDefs { return &fakeGroupDefs{caps: make(map[string]string)} }

func (f *fakeGroupDefs) Capability(ctx context.Context, group, capability string) (string, bool, error) {
	v, ok := f.caps[group+"/"+capability]
	return v, ok, nil
}

func TestResolver_ResolveGroup_ArenaBeatsGlobal(t *testing.T) {
	staff := newFakeStaff()
	staff.groups[key(ScopeGlobal, "", "bob")] = "mod"
	staff.groups[key(ScopeArena, "public", "bob")] = "owner"

	r := NewResolver(staff, newFakeGroupDefs())
	group, source, err := r.ResolveGroup(context.Background(), "public", "bob", true)
	require.NoError(t, err)
	assert.Equal(t, "owner", group)
	assert.Equal(t, SourceArena, source)
}

func TestResolver_ResolveGroup_FallsBackToGlobal(t *testing.T) {
	staff := newFakeStaff()
	staff.groups[key(ScopeGlobal, "", "bob")] = "mod"

	r := NewResolver(staff, newFakeGroupDefs())
	group, source, err := r.ResolveGroup(context.Background(), "public", "bob", true)
	require.NoError(t, err)
	assert.Equal(t, "mod", group)
	assert.Equal(t, SourceGlobal, source)
}

func TestResolver_ResolveGroup_DefaultWhenNoGrant(t *testing.T) {
	r := NewResolver(newFakeStaff(), newFakeGroupDefs())
	group, source, err := r.ResolveGroup(context.Background(), "public", "nobody", true)
	require.NoError(t, err)
	assert.Equal(t, DefaultGroup, group)
	assert.Equal(t, SourceDefault, source)
}

func TestResolver_ResolveGroup_UnauthenticatedSkipsResolution(t *testing.T) {
	staff := newFakeStaff()
	staff.groups[key(ScopeGlobal, "", "bob")] = "mod"

	r := NewResolver(staff, newFakeGroupDefs())
	group, source, err := r.ResolveGroup(context.Background(), "public", "bob", false)
	require.NoError(t, err)
	assert.Equal(t, DefaultGroup, group)
	assert.Equal(t, SourceDefault, source)
}

func TestResolver_ResolveGroup_ArenaListStepWhenEnabled(t *testing.T) {
	staff := newFakeStaff()
	staff.groups[key(ScopeArenaList, "public", "bob")] = "vip"
	staff.groups[key(ScopeGlobal, "", "bob")] = "mod"

	r := NewResolver(staff, newFakeGroupDefs())
	r.EnableArenaListStep(true)

	group, source, err := r.ResolveGroup(context.Background(), "public", "bob", true)
	require.NoError(t, err)
	assert.Equal(t, "vip", group)
	assert.Equal(t, SourceArenaList, source)
}

func TestResolver_HasCapability(t *testing.T) {
	defs := newFakeGroupDefs()
	defs.caps["mod/seeall"] = "1"

	r := NewResolver(newFakeStaff(), defs)
	has, err := r.HasCapability(context.Background(), "mod", "seeall")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = r.HasCapability(context.Background(), "mod", "kick")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestResolver_HigherThan(t *testing.T) {
	defs := newFakeGroupDefs()
	defs.caps["smod/higher_than_mod"] = "1"

	r := NewResolver(newFakeStaff(), defs)
	higher, err := r.HigherThan(context.Background(), "smod", "mod")
	require.NoError(t, err)
	assert.True(t, higher)

	higher, err = r.HigherThan(context.Background(), "mod", "smod")
	require.NoError(t, err)
	assert.False(t, higher)
}

func TestResolver_CheckGroupPassword(t *testing.T) {
	staff := newFakeStaff()
	staff.passwords["smod"] = "hunter2"

	r := NewResolver(staff, newFakeGroupDefs())
	ok, err := r.CheckGroupPassword(context.Background(), "smod", "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.CheckGroupPassword(context.Background(), "smod", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEffectiveGroup_TemporaryOverridesResolved(t *testing.T) {
	p := player.New(player.ID{}, "bob")

	assert.Equal(t, "mod", EffectiveGroup(p, "mod"))

	SetTemporaryGroup(p, "owner")
	assert.Equal(t, "owner", EffectiveGroup(p, "mod"))

	ClearTemporaryGroup(p)
	assert.Equal(t, "mod", EffectiveGroup(p, "mod"))
}

package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssvr/zoneserver/internal/db"
	"github.com/ssvr/zoneserver/internal/testutil"
)

func TestStaffRepository_LookupGroupAcrossScopes(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := db.NewStaffRepository(pool)
	ctx := context.Background()

	_, found, err := repo.LookupGroup(ctx, db.StaffScopeArena, "public", "bob")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.SetGroup(ctx, db.StaffScopeGlobal, "", "bob", "mod"))
	require.NoError(t, repo.SetGroup(ctx, db.StaffScopeArena, "public", "bob", "owner"))

	group, found, err := repo.LookupGroup(ctx, db.StaffScopeArena, "public", "bob")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "owner", group)

	group, found, err = repo.LookupGroup(ctx, db.StaffScopeGlobal, "", "bob")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "mod", group)
}

func TestStaffRepository_SetGroupUpserts(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := db.NewStaffRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.SetGroup(ctx, db.StaffScopeGlobal, "", "eve", "mod"))
	require.NoError(t, repo.SetGroup(ctx, db.StaffScopeGlobal, "", "eve", "smod"))

	group, found, err := repo.LookupGroup(ctx, db.StaffScopeGlobal, "", "eve")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "smod", group)
}

func TestStaffRepository_GroupPasswordRoundTrip(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := db.NewStaffRepository(pool)
	ctx := context.Background()

	_, found, err := repo.GroupPassword(ctx, "smod")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.SetGroup(ctx, db.StaffScopeGroupPasswd, "smod", "", "hunter2"))

	pw, found, err := repo.GroupPassword(ctx, "smod")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hunter2", pw)
}

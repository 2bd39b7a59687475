package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssvr/zoneserver/internal/db"
	"github.com/ssvr/zoneserver/internal/testutil"
)

func TestGroupDefRepository_CapabilityRoundTrip(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := db.NewGroupDefRepository(pool)
	ctx := context.Background()

	_, found, err := repo.Capability(ctx, "mod", "seeall")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.SetCapability(ctx, "mod", "seeall", "1"))

	value, found, err := repo.Capability(ctx, "mod", "seeall")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", value)
}

func TestGroupDefRepository_HigherThanEncodedAsCapability(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := db.NewGroupDefRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.SetCapability(ctx, "smod", "higher_than_mod", "1"))

	value, found, err := repo.Capability(ctx, "smod", "higher_than_mod")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", value)
}

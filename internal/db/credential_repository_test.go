package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssvr/zoneserver/internal/db"
	"github.com/ssvr/zoneserver/internal/testutil"
)

func TestCredentialRepository_LookupRoundTrip(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := db.NewCredentialRepository(pool)
	ctx := context.Background()

	_, present, err := repo.Lookup(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, present)

	require.NoError(t, repo.Set(ctx, "Bob", "900150983cd24fb0d6963f7d28e17f72"))

	value, present, err := repo.Lookup(ctx, "bob")
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", value)
}

func TestCredentialRepository_SetUpserts(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := db.NewCredentialRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "eve", "any"))
	require.NoError(t, repo.Set(ctx, "eve", "lock"))

	value, present, err := repo.Lookup(ctx, "eve")
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, "lock", value)
}

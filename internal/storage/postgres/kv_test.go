package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/fieldops/internal/storage"
	"github.com/cory-johannsen/fieldops/internal/storage/postgres"
	"github.com/cory-johannsen/fieldops/internal/testutil"
)

func TestKV_RoundTrip(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	kv := postgres.NewKV(pc.RawPool)
	ctx := context.Background()

	_, err := kv.Get(ctx, "combat-sync-state")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, kv.Put(ctx, "combat-sync-state", []byte(`{"started":["m1"]}`)))
	require.NoError(t, kv.Put(ctx, "combat-sync-state", []byte(`{"started":["m1","m2"]}`)))

	got, err := kv.Get(ctx, "combat-sync-state")
	require.NoError(t, err)
	assert.JSONEq(t, `{"started":["m1","m2"]}`, string(got))
	assert.NoError(t, kv.Close())
}

func TestOpenKV_OwnsPool(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	ctx := context.Background()

	kv, err := postgres.OpenKV(ctx, pc.Config)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, "k", []byte("v")))
	require.NoError(t, kv.Close())

	// The container's own pool is unaffected.
	got, err := postgres.NewKV(pc.RawPool).Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

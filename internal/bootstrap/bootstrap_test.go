package bootstrap_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/fieldops/internal/bootstrap"
	"github.com/cory-johannsen/fieldops/internal/config"
	"github.com/cory-johannsen/fieldops/internal/game/action"
	"github.com/cory-johannsen/fieldops/internal/game/combat"
	"github.com/cory-johannsen/fieldops/internal/storage/memory"
	"github.com/cory-johannsen/fieldops/internal/storage/sqlite"
)

func defaults(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestOpenStore_Drivers(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	cfg := defaults(t)
	cfg.Storage.Driver = "memory"
	kv, err := bootstrap.OpenStore(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.KV{}, kv)
	require.NoError(t, kv.Close())

	cfg.Storage.Driver = "sqlite"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "combat.db")
	kv, err = bootstrap.OpenStore(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &sqlite.KV{}, kv)
	require.NoError(t, kv.Close())

	cfg.Storage.Driver = "redis"
	_, err = bootstrap.OpenStore(ctx, cfg, logger)
	assert.Error(t, err)
}

func TestCatalog_AppliesOverrides(t *testing.T) {
	cat, err := bootstrap.Catalog("")
	require.NoError(t, err)
	assert.Len(t, cat.All(), len(action.Types))

	cat, err = bootstrap.Catalog("../../content/actions")
	require.NoError(t, err)
	assert.Len(t, cat.All(), len(action.Types))
	assert.Equal(t, action.Default().MustGet(action.GrenadeThrow).Cooldown, cat.MustGet(action.GrenadeThrow).Cooldown)

	_, err = bootstrap.Catalog(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestEngineConfig_MapsEveryField(t *testing.T) {
	cfg := defaults(t)
	got := bootstrap.EngineConfig(cfg.Combat)
	assert.Equal(t, combat.DefaultConfig(), got)
}

func TestSourceFactory_SeededIsReproduciblePerMission(t *testing.T) {
	f := bootstrap.SourceFactory(42)
	a, b, other := f("m-1"), f("m-1"), f("m-2")
	var sameA, sameB, diff []int
	for i := 0; i < 20; i++ {
		sameA = append(sameA, a.Intn(1000))
		sameB = append(sameB, b.Intn(1000))
		diff = append(diff, other.Intn(1000))
	}
	assert.Equal(t, sameA, sameB)
	assert.NotEqual(t, sameA, diff)

	v := bootstrap.SourceFactory(0)("m-1").Intn(10)
	assert.GreaterOrEqual(t, v, 0)
	assert.Less(t, v, 10)
}

func TestNewRegistry_RehydratesFromStore(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	cfg := defaults(t)
	cfg.Storage.Key = "state"
	store := memory.New()
	require.NoError(t, store.Put(ctx, "state", []byte(`{"started":["m-9"],"completed":[],"results":{}}`)))

	reg, err := bootstrap.NewRegistry(ctx, cfg, store, logger)
	require.NoError(t, err)
	assert.True(t, reg.HasStarted("m-9"))
	assert.False(t, reg.IsActive("m-9"))
}

func TestNewRegistry_RejectsBadVariance(t *testing.T) {
	cfg := defaults(t)
	cfg.Combat.Variance = "lots"
	_, err := bootstrap.NewRegistry(context.Background(), cfg, memory.New(), zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNewRegistry_ToleratesCorruptState(t *testing.T) {
	ctx := context.Background()
	cfg := defaults(t)
	store := memory.New()
	require.NoError(t, store.Put(ctx, cfg.Storage.Key, []byte("garbage")))

	reg, err := bootstrap.NewRegistry(ctx, cfg, store, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Empty(t, reg.ActiveMissions())
}

// Package bootstrap wires configuration into the storage, catalog and
// registry the binaries share.
package bootstrap

import (
	"context"
	"fmt"
	"hash/fnv"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fieldops/internal/config"
	"github.com/cory-johannsen/fieldops/internal/game/action"
	"github.com/cory-johannsen/fieldops/internal/game/combat"
	"github.com/cory-johannsen/fieldops/internal/game/dice"
	"github.com/cory-johannsen/fieldops/internal/game/registry"
	"github.com/cory-johannsen/fieldops/internal/storage"
	"github.com/cory-johannsen/fieldops/internal/storage/memory"
	"github.com/cory-johannsen/fieldops/internal/storage/postgres"
	"github.com/cory-johannsen/fieldops/internal/storage/sqlite"
)

// OpenStore opens the key-value medium selected by cfg.Storage.Driver and
// checks that it answers within cfg.Storage.WriteTimeout.
//
// Precondition: cfg has passed Validate.
// Postcondition: Returns a reachable storage.KV the caller must Close, or an
// error with nothing left open.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.KV, error) {
	kv, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := CheckStore(ctx, kv, cfg.Storage.WriteTimeout); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("%s store not ready: %w", cfg.Storage.Driver, err)
	}
	return kv, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.KV, error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("using in-memory store; combat state will not survive a restart")
		return memory.New(), nil
	case "sqlite":
		kv, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Info("sqlite store opened", zap.String("path", cfg.Storage.SQLitePath))
		return kv, nil
	case "postgres":
		kv, err := postgres.OpenKV(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		logger.Info("postgres store opened",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Name),
		)
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Catalog returns the built-in action catalog with the YAML overrides in dir
// applied. An empty dir returns the built-ins unchanged.
func Catalog(dir string) (*action.Catalog, error) {
	cat := action.Default()
	if dir == "" {
		return cat, nil
	}
	overrides, err := action.LoadDirectory(dir)
	if err != nil {
		return nil, fmt.Errorf("loading action overrides: %w", err)
	}
	return cat.Override(overrides)
}

// EngineConfig maps the combat configuration section onto engine tuning.
func EngineConfig(c config.CombatConfig) combat.Config {
	return combat.Config{
		TickMin:       c.TickMin,
		TickMax:       c.TickMax,
		TickStep:      c.TickStep,
		SafetyTimeout: c.SafetyTimeout,
		EventLogCap:   c.EventLogCap,
		PacingFactor:  c.PacingFactor,
		DefenseFactor: c.DefenseFactor,
		EnergyRegen:   c.EnergyRegen,
		CoverDecay:    c.CoverDecay,
		Variance:      c.Variance,
	}
}

// SourceFactory returns crypto-backed sources when seed is zero. Otherwise
// every mission gets a source seeded from seed and its id, so a replay of the
// same mission with the same seed is identical.
func SourceFactory(seed int64) func(missionID string) dice.Source {
	if seed == 0 {
		return func(string) dice.Source { return dice.NewCryptoSource() }
	}
	return func(missionID string) dice.Source {
		h := fnv.New64a()
		_, _ = h.Write([]byte(missionID))
		return dice.NewSeededSource(seed ^ int64(h.Sum64()))
	}
}

// NewRegistry builds a registry over store from cfg and rehydrates it. A
// failed rehydrate is logged and the registry is still returned.
//
// Precondition: cfg has passed Validate; store is open.
func NewRegistry(ctx context.Context, cfg config.Config, store storage.KV, logger *zap.Logger, opts ...registry.Option) (*registry.Registry, error) {
	engineCfg := EngineConfig(cfg.Combat).WithDefaults()
	if _, err := dice.Parse(engineCfg.Variance); err != nil {
		return nil, fmt.Errorf("combat.variance: %w", err)
	}
	cat, err := Catalog(cfg.Combat.ActionsDir)
	if err != nil {
		return nil, err
	}
	base := []registry.Option{
		registry.WithLogger(logger),
		registry.WithCatalog(cat),
		registry.WithSourceFactory(SourceFactory(cfg.Combat.Seed)),
		registry.WithStoreKey(cfg.Storage.Key),
		registry.WithWriteTimeout(cfg.Storage.WriteTimeout),
	}
	reg := registry.New(store, engineCfg, append(base, opts...)...)
	if err := reg.Rehydrate(ctx); err != nil {
		logger.Error("rehydrating session registry", zap.Error(err))
	}
	return reg, nil
}

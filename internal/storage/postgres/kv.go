package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/fieldops/internal/config"
	"github.com/cory-johannsen/fieldops/internal/storage"
)

var (
	_ storage.KV            = (*KV)(nil)
	_ storage.HealthChecker = (*KV)(nil)
)

// KV implements storage.KV on the combat_kv table.
type KV struct {
	db    *pgxpool.Pool
	owned *Pool
}

// NewKV creates a KV backed by db. Close does not close db.
//
// Precondition: db must be a valid, open connection pool with the combat_kv
// table migrated.
func NewKV(db *pgxpool.Pool) *KV {
	return &KV{db: db}
}

// OpenKV connects a new pool from cfg and returns a KV that owns it.
//
// Postcondition: Returns a connected KV or a non-nil error.
func OpenKV(ctx context.Context, cfg config.DatabaseConfig) (*KV, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &KV{db: pool.DB(), owned: pool}, nil
}

// Get implements storage.KV.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := k.db.QueryRow(ctx, `SELECT value FROM combat_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Put implements storage.KV.
func (k *KV) Put(ctx context.Context, key string, value []byte) error {
	_, err := k.db.Exec(ctx,
		`INSERT INTO combat_kv (key, value, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Health implements storage.HealthChecker.
func (k *KV) Health(ctx context.Context, timeout time.Duration) error {
	return ping(ctx, k.db, timeout)
}

// Close implements storage.KV. It closes the pool only if OpenKV created it.
func (k *KV) Close() error {
	if k.owned != nil {
		k.owned.Close()
	}
	return nil
}

// Package postgres stores combat state in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/fieldops/internal/config"
)

// Pool is a pgx connection pool sized for the combat store.
type Pool struct {
	pool *pgxpool.Pool
}

// poolConfig translates cfg into pgx settings. A MinConns above MaxConns is
// lowered to MaxConns.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if pc.MinConns > pc.MaxConns {
		pc.MinConns = pc.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	return pc, nil
}

// NewPool connects a pool from cfg and verifies it with one ping.
//
// Precondition: cfg must describe a reachable database.
// Postcondition: Returns a ready Pool or a non-nil error; no pool leaks on error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := ping(ctx, pool, 0); err != nil {
		pool.Close()
		return nil, err
	}
	return &Pool{pool: pool}, nil
}

// ping checks db, bounded by timeout when it is positive.
func ping(ctx context.Context, db *pgxpool.Pool, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// Health implements storage.HealthChecker.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	return ping(ctx, p.pool, timeout)
}

// Close releases every connection. The pool is unusable afterwards.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgx pool.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}

// Package storage defines the key-value port the session registry persists through.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// KV is a durable key-value medium. Implementations must be safe for
// concurrent use.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Close releases the medium's resources.
	Close() error
}

// HealthChecker is implemented by stores that can report whether their
// backing medium is reachable.
type HealthChecker interface {
	// Health returns nil if the medium answered within timeout.
	Health(ctx context.Context, timeout time.Duration) error
}

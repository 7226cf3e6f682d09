// Package memory provides an in-process storage.KV.
package memory

import (
	"context"
	"sync"

	"github.com/cory-johannsen/fieldops/internal/storage"
)

// KV is a mutex-guarded map. Values are copied on the way in and out.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty KV.
func New() *KV {
	return &KV{data: make(map[string][]byte)}
}

// Get implements storage.KV.
func (m *KV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put implements storage.KV.
func (m *KV) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Close implements storage.KV. The data is kept so a test can reopen it.
func (m *KV) Close() error { return nil }

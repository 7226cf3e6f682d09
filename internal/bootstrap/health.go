package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/cory-johannsen/fieldops/internal/storage"
)

// DefaultHealthInterval is how often StoreMonitor pings the store.
const DefaultHealthInterval = 30 * time.Second

// CheckStore pings store within timeout. Stores without a health check, such
// as the in-memory one, are always ready.
func CheckStore(ctx context.Context, store storage.KV, timeout time.Duration) error {
	hc, ok := store.(storage.HealthChecker)
	if !ok {
		return nil
	}
	return hc.Health(ctx, timeout)
}

// StoreMonitor periodically pings the store and logs when it becomes
// unreachable and when it recovers. It implements server.Service.
type StoreMonitor struct {
	store    storage.KV
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	healthy bool
	stop    chan struct{}
	once    sync.Once
}

// NewStoreMonitor creates a StoreMonitor. A nil clock uses the real clock;
// a non-positive interval uses DefaultHealthInterval.
func NewStoreMonitor(store storage.KV, clock clockwork.Clock, interval, timeout time.Duration, logger *zap.Logger) *StoreMonitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreMonitor{
		store:    store,
		clock:    clock,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		healthy:  true,
		stop:     make(chan struct{}),
	}
}

// Healthy reports the outcome of the most recent ping.
func (m *StoreMonitor) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

// Start pings on every interval until Stop.
func (m *StoreMonitor) Start() error {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return nil
		case <-ticker.Chan():
			m.Check()
		}
	}
}

// Check pings the store once and records the outcome.
func (m *StoreMonitor) Check() {
	err := CheckStore(context.Background(), m.store, m.timeout)
	m.mu.Lock()
	was := m.healthy
	m.healthy = err == nil
	m.mu.Unlock()
	switch {
	case err != nil && was:
		m.logger.Warn("store unreachable; combat state writes will fail", zap.Error(err))
	case err == nil && !was:
		m.logger.Info("store reachable again")
	}
}

// Stop ends Start. Safe to call repeatedly.
func (m *StoreMonitor) Stop() {
	m.once.Do(func() { close(m.stop) })
}

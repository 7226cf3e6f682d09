package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fieldops/internal/game/combat"
	"github.com/cory-johannsen/fieldops/internal/storage"
)

// record is the durable form of the registry, stored as one JSON blob.
type record struct {
	Started   []string                  `json:"started"`
	Completed []string                  `json:"completed"`
	Results   map[string]*combat.Result `json:"results"`
}

// Rehydrate merges the durable record into the registry. A missing record is
// not an error.
//
// Postcondition: on error the registry is unchanged and remains usable.
func (r *Registry) Rehydrate(ctx context.Context) error {
	data, err := r.store.Get(ctx, r.key)
	if errors.Is(err, storage.ErrNotFound) {
		r.logger.Info("no durable combat state found", zap.String("key", r.key))
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading combat state: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decoding combat state: %w", err)
	}

	r.mu.Lock()
	for _, id := range rec.Started {
		r.started[id] = true
	}
	for id, res := range rec.Results {
		if res == nil {
			continue
		}
		res.MissionID = id
		r.results[id] = res
		r.completed[id] = true
		r.started[id] = true
	}
	// A completed id without its result cannot satisfy queries; keep it
	// as started only.
	var missing []string
	for _, id := range rec.Completed {
		r.started[id] = true
		if _, ok := r.results[id]; !ok {
			missing = append(missing, id)
		}
	}
	started, completed := len(r.started), len(r.completed)
	r.mu.Unlock()

	if len(missing) > 0 {
		r.logger.Warn("completed missions without results rehydrated as started",
			zap.Strings("mission_ids", missing),
		)
	}
	r.logger.Info("combat state rehydrated",
		zap.Int("started", started),
		zap.Int("completed", completed),
	)
	return nil
}

// snapshotRecord copies the durable state. Precondition: r.mu is held.
func (r *Registry) snapshotRecord() record {
	rec := record{
		Started:   make([]string, 0, len(r.started)),
		Completed: make([]string, 0, len(r.completed)),
		Results:   make(map[string]*combat.Result, len(r.results)),
	}
	for id := range r.started {
		rec.Started = append(rec.Started, id)
	}
	for id := range r.completed {
		rec.Completed = append(rec.Completed, id)
	}
	for id, res := range r.results {
		rec.Results[id] = res
	}
	sort.Strings(rec.Started)
	sort.Strings(rec.Completed)
	return rec
}

// persist writes the current durable state. Failures are logged and never
// touch in-memory state.
func (r *Registry) persist() {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	rec := r.snapshotRecord()
	r.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		r.logger.Warn("encoding combat state", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()
	if err := r.store.Put(ctx, r.key, data); err != nil {
		r.logger.Warn("persisting combat state",
			zap.String("key", r.key),
			zap.Int("started", len(rec.Started)),
			zap.Int("completed", len(rec.Completed)),
			zap.Error(err),
		)
	}
}

// Package registry owns the lifecycle of combat sessions keyed by mission id.
//
// A Registry starts at most one Engine per mission, relays end-of-tick
// snapshots and completions to subscribers, and persists the started set,
// the completed set and every finalized Result through a storage.KV.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/cory-johannsen/fieldops/internal/game/action"
	"github.com/cory-johannsen/fieldops/internal/game/combat"
	"github.com/cory-johannsen/fieldops/internal/game/dice"
	"github.com/cory-johannsen/fieldops/internal/storage"
	"github.com/cory-johannsen/fieldops/internal/storage/memory"
)

// DefaultStoreKey is the key the durable record is written under.
const DefaultStoreKey = "combat-sync-state"

// DefaultWriteTimeout bounds a single persistence write.
const DefaultWriteTimeout = 2 * time.Second

// CompletionFunc receives the outcome of a finalized session.
type CompletionFunc func(victory bool, actualDuration time.Duration)

// Status is the externally visible lifecycle of one mission id.
type Status struct {
	Active   bool `json:"active"`
	Started  bool `json:"started"`
	Complete bool `json:"complete"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the clock shared by every engine.
func WithClock(c clockwork.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithSchedulerFactory sets how each engine gets its tick scheduler.
func WithSchedulerFactory(f func() combat.Scheduler) Option {
	return func(r *Registry) { r.newScheduler = f }
}

// WithSourceFactory sets how each engine gets its random source.
func WithSourceFactory(f func(missionID string) dice.Source) Option {
	return func(r *Registry) { r.newSource = f }
}

// WithCatalog sets the action catalog handed to every engine.
func WithCatalog(c *action.Catalog) Option {
	return func(r *Registry) { r.catalog = c }
}

// WithStoreKey overrides DefaultStoreKey.
func WithStoreKey(key string) Option {
	return func(r *Registry) { r.key = key }
}

// WithWriteTimeout overrides DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(r *Registry) { r.writeTimeout = d }
}

// Registry tracks every combat session by mission id.
// All methods are safe for concurrent use and total over unknown ids.
type Registry struct {
	store        storage.KV
	cfg          combat.Config
	logger       *zap.Logger
	clock        clockwork.Clock
	newScheduler func() combat.Scheduler
	newSource    func(missionID string) dice.Source
	catalog      *action.Catalog
	key          string
	writeTimeout time.Duration

	mu           sync.Mutex
	closed       bool
	engines      map[string]*combat.Engine
	started      map[string]bool
	completed    map[string]bool
	results      map[string]*combat.Result
	completeSubs map[string][]CompletionFunc
	updateSubs   map[string]map[uint64]func(*combat.Session)
	nextSub      uint64

	// persistMu serializes writes so the last write always carries the latest state.
	persistMu sync.Mutex
}

// New builds an empty Registry. Call Rehydrate before serving to restore
// durable state.
//
// Precondition: cfg must carry a valid damage variance once defaults apply.
// Postcondition: a nil store is replaced by an in-memory KV.
func New(store storage.KV, cfg combat.Config, opts ...Option) *Registry {
	r := &Registry{
		store:        store,
		cfg:          cfg.WithDefaults(),
		logger:       zap.NewNop(),
		clock:        clockwork.NewRealClock(),
		key:          DefaultStoreKey,
		writeTimeout: DefaultWriteTimeout,
		engines:      make(map[string]*combat.Engine),
		started:      make(map[string]bool),
		completed:    make(map[string]bool),
		results:      make(map[string]*combat.Result),
		completeSubs: make(map[string][]CompletionFunc),
		updateSubs:   make(map[string]map[uint64]func(*combat.Session)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = memory.New()
	}
	if r.catalog == nil {
		r.catalog = action.Default()
	}
	if r.newScheduler == nil {
		clock := r.clock
		r.newScheduler = func() combat.Scheduler { return combat.NewTimerScheduler(clock) }
	}
	if r.newSource == nil {
		r.newSource = func(string) dice.Source { return dice.NewCryptoSource() }
	}
	return r
}

// Start begins a combat session for missionID.
//
// Precondition: missionID must be non-empty.
// Postcondition: Returns true iff a new engine was registered and started.
// Returns false, without side effects, when the registry is closed, a result
// already exists for missionID, or a session for missionID is running.
func (r *Registry) Start(missionID string, participants []combat.ParticipantSpec, enemies []combat.EnemySpec, mc combat.MissionContext) bool {
	if missionID == "" {
		return false
	}
	logger := r.logger.With(zap.String("mission_id", missionID))

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		logger.Debug("start rejected: registry closed")
		return false
	}
	if _, done := r.results[missionID]; done || r.completed[missionID] {
		r.mu.Unlock()
		logger.Debug("start ignored: session already finalized")
		return false
	}
	if _, running := r.engines[missionID]; running {
		r.mu.Unlock()
		logger.Debug("start ignored: session already running")
		return false
	}
	mc.MissionID = missionID
	eng, err := combat.NewEngine(missionID, participants, enemies, mc, combat.Deps{
		Config:    r.cfg,
		Catalog:   r.catalog,
		Source:    r.newSource(missionID),
		Clock:     r.clock,
		Scheduler: r.newScheduler(),
		Logger:    r.logger,
		OnUpdate:  func(s *combat.Session) { r.relayUpdate(missionID, s) },
		OnFinish:  r.finalize,
	})
	if err != nil {
		r.mu.Unlock()
		logger.Error("building combat engine", zap.Error(err))
		return false
	}
	r.engines[missionID] = eng
	r.started[missionID] = true
	r.mu.Unlock()

	r.persist()
	// Engine.Start publishes synchronously and relayUpdate takes r.mu, so it
	// must run after the lock is released.
	eng.Start()
	logger.Info("combat session registered",
		zap.Int("participants", len(participants)),
		zap.Int("enemies", len(enemies)),
	)
	return true
}

// IsActive reports whether a session for missionID is running in this process.
func (r *Registry) IsActive(missionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.engines[missionID]
	return ok && !r.completed[missionID]
}

// HasStarted reports whether a session for missionID was ever started,
// including before a restart.
func (r *Registry) HasStarted(missionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started[missionID] || r.completed[missionID]
}

// IsComplete reports whether missionID has a finalized result.
func (r *Registry) IsComplete(missionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed[missionID]
}

// Status returns all three lifecycle flags for missionID in one read.
func (r *Registry) Status(missionID string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, running := r.engines[missionID]
	complete := r.completed[missionID]
	return Status{
		Active:   running && !complete,
		Started:  r.started[missionID] || complete,
		Complete: complete,
	}
}

// LiveState returns the latest end-of-tick snapshot of a running session,
// or nil when missionID is unknown or finalized. The snapshot is shared and
// must not be modified.
func (r *Registry) LiveState(missionID string) *combat.Session {
	r.mu.Lock()
	eng := r.engines[missionID]
	r.mu.Unlock()
	if eng == nil {
		return nil
	}
	return eng.Snapshot()
}

// Result returns a copy of the finalized result for missionID, or nil.
// Changing the copy does not affect the recorded result.
func (r *Registry) Result(missionID string) *combat.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[missionID].Clone()
}

// ActiveMissions lists the ids of running sessions in lexical order.
func (r *Registry) ActiveMissions() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// OnComplete registers fn to run once when missionID is finalized, whether by
// natural termination or ForceEnd. fn runs synchronously in the goroutine that
// finalized the session.
//
// Postcondition: Returns false, and never calls fn, if missionID is already complete.
func (r *Registry) OnComplete(missionID string, fn CompletionFunc) bool {
	if fn == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completed[missionID] {
		return false
	}
	r.completeSubs[missionID] = append(r.completeSubs[missionID], fn)
	return true
}

// OnUpdate registers fn to receive every end-of-tick snapshot of missionID
// until the session is finalized. The returned func cancels the subscription.
func (r *Registry) OnUpdate(missionID string, fn func(*combat.Session)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil || r.completed[missionID] {
		return func() {}
	}
	r.nextSub++
	id := r.nextSub
	subs := r.updateSubs[missionID]
	if subs == nil {
		subs = make(map[uint64]func(*combat.Session))
		r.updateSubs[missionID] = subs
	}
	subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if subs, ok := r.updateSubs[missionID]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(r.updateSubs, missionID)
			}
		}
	}
}

// ForceEnd freezes the running session for missionID as ForcedEnd with
// victory=false.
//
// Postcondition: Returns true iff this call finalized a running session.
// Unknown, finalized and orphaned (started before a restart) ids are a no-op.
func (r *Registry) ForceEnd(missionID string) bool {
	r.mu.Lock()
	eng := r.engines[missionID]
	closed := r.closed
	r.mu.Unlock()
	if eng == nil || closed {
		return false
	}
	if _, ok := eng.ForceEnd(); !ok {
		return false
	}
	r.logger.Info("combat session force-ended", zap.String("mission_id", missionID))
	return true
}

// Close stops every running engine without finalizing it and forgets it, so
// its mission reads as started but not active. Later starts are rejected.
// Close does not close the store.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	engines := make([]*combat.Engine, 0, len(r.engines))
	for id, eng := range r.engines {
		engines = append(engines, eng)
		delete(r.engines, id)
	}
	r.updateSubs = make(map[string]map[uint64]func(*combat.Session))
	r.mu.Unlock()

	for _, eng := range engines {
		eng.Stop()
	}
	r.logger.Info("session registry closed", zap.Int("stopped", len(engines)))
}

func (r *Registry) relayUpdate(missionID string, s *combat.Session) {
	r.mu.Lock()
	subs := make([]func(*combat.Session), 0, len(r.updateSubs[missionID]))
	for _, fn := range r.updateSubs[missionID] {
		subs = append(subs, fn)
	}
	r.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

// finalize records res exactly once, drops the engine, persists, then fires
// completion callbacks. It is the engines' OnFinish hook.
func (r *Registry) finalize(res *combat.Result) {
	id := res.MissionID
	r.mu.Lock()
	if _, done := r.results[id]; done {
		r.mu.Unlock()
		return
	}
	r.results[id] = res.Clone()
	r.completed[id] = true
	r.started[id] = true
	delete(r.engines, id)
	subs := r.completeSubs[id]
	delete(r.completeSubs, id)
	delete(r.updateSubs, id)
	r.mu.Unlock()

	r.persist()
	r.logger.Info("combat session finalized",
		zap.String("mission_id", id),
		zap.String("status", string(res.Status)),
		zap.Bool("victory", res.Victory),
		zap.Int("round", res.Rounds),
		zap.Duration("elapsed", res.ActualDuration),
	)
	for _, fn := range subs {
		fn(res.Victory, res.ActualDuration)
	}
}

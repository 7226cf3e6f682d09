package combat

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/cory-johannsen/fieldops/internal/game/action"
	"github.com/cory-johannsen/fieldops/internal/game/dice"
	"github.com/cory-johannsen/fieldops/internal/game/effect"
)

// Deps are the collaborators an Engine needs. Nil fields take defaults:
// the built-in catalog, a crypto source, the real clock, a TimerScheduler on
// that clock, and a no-op logger.
type Deps struct {
	Config    Config
	Catalog   *action.Catalog
	Source    dice.Source
	Clock     clockwork.Clock
	Scheduler Scheduler
	Logger    *zap.Logger
	// OnUpdate receives published snapshots in publication order, outside the
	// engine lock. A snapshot superseded before it could be delivered is
	// skipped. OnUpdate must not call back into the same Engine.
	OnUpdate func(*Session)
	// OnFinish receives the finalized result exactly once, outside the engine
	// lock, in the goroutine that detected termination.
	OnFinish func(*Result)
}

// Engine resolves one combat session. Ticks are cooperative: the next tick is
// scheduled only after the current one completes. All methods are safe for
// concurrent use.
type Engine struct {
	id       string
	cfg      Config
	catalog  *action.Catalog
	roller   *dice.Roller
	variance dice.Expression
	clock    clockwork.Clock
	sched    Scheduler
	logger   *zap.Logger
	onUpdate func(*Session)
	onFinish func(*Result)
	env      Environment
	nominal  time.Duration

	mu           sync.Mutex
	started      bool
	stopped      bool
	status       SessionStatus
	victory      *bool
	round        int
	startTime    time.Time
	elapsed      time.Duration
	interval     time.Duration
	participants []*Combatant
	enemies      []*Combatant
	log          *EventLog
	token        Token
	armed        bool
	result       *Result
	version      uint64

	// notifyMu serializes delivery so observers never see an older
	// snapshot after a newer one.
	notifyMu  sync.Mutex
	delivered uint64

	snapshot atomic.Pointer[Session]
}

// NewEngine builds an Engine for missionID. The session does not run until Start.
//
// Precondition: cfg.Variance, after defaults, must be a valid dice expression.
// Postcondition: Snapshot() returns nil until Start is called.
func NewEngine(missionID string, participants []ParticipantSpec, enemies []EnemySpec, mc MissionContext, deps Deps) (*Engine, error) {
	cfg := deps.Config.WithDefaults()
	variance, err := dice.Parse(cfg.Variance)
	if err != nil {
		return nil, fmt.Errorf("damage variance: %w", err)
	}
	e := &Engine{
		id:       missionID,
		cfg:      cfg,
		catalog:  deps.Catalog,
		variance: variance,
		clock:    deps.Clock,
		sched:    deps.Scheduler,
		logger:   deps.Logger,
		onUpdate: deps.OnUpdate,
		onFinish: deps.OnFinish,
		env:      Environment{Terrain: mc.Terrain, Weather: mc.Weather},
		nominal:  mc.NominalDuration,
		status:   Running,
		log:      NewEventLog(cfg.EventLogCap),
	}
	if e.catalog == nil {
		e.catalog = action.Default()
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.sched == nil {
		e.sched = NewTimerScheduler(e.clock)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.With(zap.String("mission_id", missionID))
	src := deps.Source
	if src == nil {
		src = dice.NewCryptoSource()
	}
	e.roller = dice.NewRoller(src, e.logger)

	for i, p := range participants {
		e.participants = append(e.participants, newParticipant(i, p))
	}
	for i, en := range enemies {
		e.enemies = append(e.enemies, newEnemy(i, en))
	}
	e.interval = cfg.TickInterval(len(e.participants) + len(e.enemies))
	return e, nil
}

// ID returns the mission id.
func (e *Engine) ID() string { return e.id }

// Start records the environment, publishes the first snapshot and arms the
// first tick. Calling Start more than once, or after ForceEnd or Stop, is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started || e.stopped || e.status != Running {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.startTime = e.clock.Now()
	e.appendEvent(Event{
		Type:        EventEnvironmental,
		Actor:       "environment",
		Description: environmentDescription(e.env),
	})
	snap := e.publish()
	ver := e.version
	e.mu.Unlock()

	e.logger.Info("combat session started",
		zap.Int("participants", len(e.participants)),
		zap.Int("enemies", len(e.enemies)),
		zap.String("terrain", e.env.Terrain),
		zap.String("weather", e.env.Weather),
		zap.Duration("tick_interval", e.interval),
	)
	e.notify(snap, nil, ver)
	e.rearm()
}

// Snapshot returns the latest published end-of-tick snapshot, or nil before Start.
// The returned Session is shared and must not be modified.
func (e *Engine) Snapshot() *Session { return e.snapshot.Load() }

// Result returns the finalized result, or nil while the session is running.
func (e *Engine) Result() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// TickInterval returns the cadence chosen at construction.
func (e *Engine) TickInterval() time.Duration { return e.interval }

// ForceEnd freezes a running session as ForcedEnd with victory=false.
// It is idempotent: later calls, and calls after natural completion, return
// (nil, false).
//
// Postcondition: the session is terminal and no further tick will run.
func (e *Engine) ForceEnd() (*Result, bool) {
	e.mu.Lock()
	if e.status != Running {
		e.mu.Unlock()
		return nil, false
	}
	e.disarm()
	e.elapsed = e.sinceStart()
	e.appendEvent(Event{
		Type:        EventStatus,
		Actor:       "system",
		Description: fmt.Sprintf("Combat was called off after %d rounds.", e.round),
	})
	res := e.finish(ForcedEnd, false)
	snap := e.publish()
	ver := e.version
	e.mu.Unlock()

	e.notify(snap, res, ver)
	return res, true
}

// Stop cancels the pending tick without finalizing. The session stays Running
// in memory but never advances again.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	e.disarm()
}

// Tick runs one resolution round. It is the scheduler callback and is exported
// for callers that drive the engine without a scheduler.
func (e *Engine) Tick() {
	e.mu.Lock()
	e.armed = false
	if e.status != Running || e.stopped || !e.started {
		e.mu.Unlock()
		return
	}
	e.round++
	e.elapsed = e.sinceStart()

	e.takeTurns(e.participants, e.enemies)
	e.takeTurns(e.enemies, e.participants)
	e.decay()

	res := e.checkTermination()
	snap := e.publish()
	ver := e.version
	e.mu.Unlock()

	e.logger.Debug("combat tick",
		zap.Int("round", snap.Round),
		zap.Duration("elapsed", snap.Elapsed),
		zap.String("status", string(snap.Status)),
	)
	e.notify(snap, res, ver)
	if res == nil {
		e.rearm()
	}
}

// notify delivers snapshot version ver unless a newer one already went out,
// then hands res to onFinish.
func (e *Engine) notify(snap *Session, res *Result, ver uint64) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	if ver > e.delivered {
		e.delivered = ver
		if e.onUpdate != nil {
			e.onUpdate(snap)
		}
	}
	if res != nil && e.onFinish != nil {
		e.onFinish(res)
	}
}

// rearm schedules the next tick once the previous one has been delivered.
func (e *Engine) rearm() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != Running || e.stopped || !e.started || e.armed {
		return
	}
	e.arm()
}

// takeTurns lets every fighting actor in registration order execute one action
// against opponents. It stops early once no opponent is left standing.
//
// Precondition: e.mu is held.
func (e *Engine) takeTurns(actors, opponents []*Combatant) {
	for _, a := range actors {
		if !a.IsFighting() {
			continue
		}
		if len(fighting(opponents)) == 0 {
			return
		}
		var def *action.Definition
		if a.Side == SideParticipant {
			def = ChooseParticipantAction(a, e.catalog, e.env.Terrain, e.roller)
		} else {
			def = ChooseEnemyAction(a, e.catalog, e.env.Terrain, e.roller)
		}
		if def == nil {
			continue
		}
		e.execute(a, def, actors, opponents)
	}
}

// execute spends the actor's energy, starts the cooldown, applies the action
// and appends exactly one event.
//
// Precondition: e.mu is held; def is legal for actor.
func (e *Engine) execute(actor *Combatant, def *action.Definition, allies, opponents []*Combatant) {
	actor.Energy -= def.EnergyCost
	if def.Cooldown > 0 {
		actor.Cooldowns[def.Type] = def.Cooldown
	}
	actor.LastAction = def.Type

	var ev Event
	switch def.Scope {
	case action.ScopeEnemy:
		ev = e.executeOffensive(actor, def, opponents)
	case action.ScopeAllies:
		ev = e.executeAllies(actor, def, allies)
	default:
		ev = e.executeSelf(actor, def)
	}
	ev.Actor = actor.ID
	ev.Action = def.Type
	e.appendEvent(ev)
}

func (e *Engine) executeOffensive(actor *Combatant, def *action.Definition, opponents []*Combatant) Event {
	target := ChooseTarget(actor, opponents, e.roller)
	res := ResolveAttack(actor, target, def, e.env, e.cfg, e.variance, e.roller)

	// AccuracyDelta only modifies the roll; defense and stealth deltas land on
	// the attacker whether or not the attack connects.
	applyStatEffect(actor, string(def.Type), 0, def.Effect.DefenseDelta, def.Effect.StealthDelta, def.Effect.Duration)

	ev := Event{Type: EventAction, Target: target.ID}
	if !res.Hit {
		ev.Outcome = OutcomeMiss
		ev.Description = fmt.Sprintf("%s %s %s but misses.", actor.Name, def.Name, target.Name)
		return ev
	}
	ev.Outcome = OutcomeHit
	if def.Effect.TargetAccuracyDelta != 0 {
		dur := def.Effect.Duration
		if dur <= 0 {
			dur = 1
		}
		applyStatEffect(target, string(def.Type), def.Effect.TargetAccuracyDelta, 0, 0, dur)
	}
	if def.Effect.TargetMoraleDelta != 0 {
		target.Morale = clamp(target.Morale+def.Effect.TargetMoraleDelta, 0, maxMorale)
	}
	if res.Damage == 0 {
		ev.Description = fmt.Sprintf("%s %s %s and it lands.", actor.Name, def.Name, target.Name)
		return ev
	}
	ev.Type = EventDamage
	ev.Damage = res.Damage
	downed := target.ApplyDamage(res.Damage)
	ev.Description = fmt.Sprintf("%s %s %s for %d damage.", actor.Name, def.Name, target.Name, res.Damage)
	if downed {
		ev.Description += " " + downedDescription(target)
	}
	return ev
}

func (e *Engine) executeSelf(actor *Combatant, def *action.Definition) Event {
	ev := Event{Type: EventAction, Description: fmt.Sprintf("%s %s.", actor.Name, def.Name)}
	if actor.Side == SideEnemy {
		return ev
	}
	fx := def.Effect
	applyStatEffect(actor, string(def.Type), fx.AccuracyDelta, fx.DefenseDelta, fx.StealthDelta, fx.Duration)
	if fx.Cover > 0 {
		actor.Cover = clamp(actor.Cover+fx.Cover, 0, maxCover)
	}
	if fx.MoraleDelta != 0 {
		actor.Morale = clamp(actor.Morale+fx.MoraleDelta, 0, maxMorale)
	}
	if fx.Heal > 0 {
		actor.Heal(fx.Heal)
	}
	return ev
}

func (e *Engine) executeAllies(actor *Combatant, def *action.Definition, allies []*Combatant) Event {
	ev := Event{Type: EventAction, Description: fmt.Sprintf("%s %s.", actor.Name, def.Name)}
	if actor.Side == SideEnemy {
		return ev
	}
	fx := def.Effect
	if fx.Heal > 0 {
		if patient := weakestAlly(allies); patient != nil {
			healed := patient.Heal(fx.Heal)
			ev.Target = patient.ID
			ev.Description = fmt.Sprintf("%s %s %s for %d health.", actor.Name, def.Name, patient.Name, healed)
		}
	}
	for _, a := range fighting(allies) {
		applyStatEffect(a, string(def.Type), fx.AccuracyDelta, fx.DefenseDelta, fx.StealthDelta, fx.Duration)
		if fx.Cover > 0 {
			a.Cover = clamp(a.Cover+fx.Cover, 0, maxCover)
		}
		if fx.MoraleDelta != 0 {
			a.Morale = clamp(a.Morale+fx.MoraleDelta, 0, maxMorale)
		}
	}
	return ev
}

// applyStatEffect records non-zero deltas as an active effect on c. Enemies
// only ever receive penalties.
func applyStatEffect(c *Combatant, source string, acc, def, stl, duration int) {
	if acc == 0 && def == 0 && stl == 0 {
		return
	}
	if duration <= 0 {
		return
	}
	if c.Side == SideEnemy && (acc > 0 || def > 0 || stl > 0) {
		return
	}
	// Apply only fails on an empty source or non-positive duration, both excluded above.
	_ = c.active.Apply(effect.Active{Source: source, Accuracy: acc, Defense: def, Stealth: stl, Remaining: duration})
}

// decay applies end-of-tick recovery and attrition to every fighting actor.
//
// Precondition: e.mu is held.
func (e *Engine) decay() {
	adverse := e.env.Adverse()
	for _, group := range [][]*Combatant{e.participants, e.enemies} {
		for _, c := range group {
			if !c.IsFighting() {
				continue
			}
			c.Energy = clamp(c.Energy+e.cfg.EnergyRegen, 0, c.MaxEnergy)
			c.Fatigue = clamp(c.Fatigue+1, 0, maxFatigue)
			if adverse {
				c.Morale--
			}
			if c.HealthFraction() < moderateHealth {
				c.Morale -= 2
			}
			c.Morale = clamp(c.Morale, 0, maxMorale)
			c.Cover = clamp(c.Cover-e.cfg.CoverDecay, 0, maxCover)
			for t, cd := range c.Cooldowns {
				if cd <= 1 {
					delete(c.Cooldowns, t)
					continue
				}
				c.Cooldowns[t] = cd - 1
			}
			c.active.Tick()
		}
	}
}

// checkTermination finalizes the session when a terminal condition holds.
//
// Precondition: e.mu is held.
// Postcondition: Returns a non-nil Result iff the session left Running.
func (e *Engine) checkTermination() *Result {
	squad := len(fighting(e.participants))
	opfor := len(fighting(e.enemies))
	// A wiped squad loses even if the last hostile went down with it.
	switch {
	case squad == 0:
		e.appendEvent(Event{Type: EventDefeat, Actor: "system", Description: "The squad has been taken out of the fight. Mission failed."})
		return e.finish(Completed, false)
	case opfor == 0:
		e.appendEvent(Event{Type: EventVictory, Actor: "system", Description: "All hostiles neutralized. Mission accomplished."})
		return e.finish(Completed, true)
	case e.elapsed >= e.cfg.SafetyTimeout:
		if squad > opfor {
			e.appendEvent(Event{Type: EventVictory, Actor: "system",
				Description: fmt.Sprintf("The fighting stalls; the squad holds the field %d to %d.", squad, opfor)})
			return e.finish(Completed, true)
		}
		e.appendEvent(Event{Type: EventDefeat, Actor: "system",
			Description: fmt.Sprintf("The fighting stalls; the squad withdraws outnumbered %d to %d.", opfor, squad)})
		return e.finish(Completed, false)
	}
	return nil
}

// finish freezes the result.
//
// Precondition: e.mu is held and status is Running.
func (e *Engine) finish(status SessionStatus, victory bool) *Result {
	e.status = status
	e.victory = &victory
	e.disarm()
	healths := make(map[string]int, len(e.participants))
	for _, p := range e.participants {
		healths[p.ID] = p.Health
	}
	e.result = &Result{
		MissionID:      e.id,
		Victory:        victory,
		Status:         status,
		ActualDuration: e.elapsed,
		Rounds:         e.round,
		CompletedAt:    e.clock.Now(),
		FinalHealths:   healths,
		Events:         e.log.Events(),
	}
	e.logger.Info("combat session finished",
		zap.String("status", string(status)),
		zap.Bool("victory", victory),
		zap.Int("round", e.round),
		zap.Duration("elapsed", e.elapsed),
	)
	return e.result
}

// arm schedules the next tick. Precondition: e.mu is held.
func (e *Engine) arm() {
	e.token = e.sched.Schedule(e.interval, e.Tick)
	e.armed = true
}

// disarm cancels a scheduled tick. Precondition: e.mu is held.
func (e *Engine) disarm() {
	if e.armed {
		e.sched.Cancel(e.token)
		e.armed = false
	}
}

func (e *Engine) sinceStart() time.Duration {
	if !e.started {
		return 0
	}
	d := e.clock.Since(e.startTime)
	if d < 0 {
		return 0
	}
	return d
}

// appendEvent stamps and appends ev. Precondition: e.mu is held.
func (e *Engine) appendEvent(ev Event) {
	ev.Timestamp = e.clock.Now()
	ev.Round = e.round
	e.log.Append(ev)
}

// publish stores a deep copy of the current state as the visible snapshot.
//
// Precondition: e.mu is held.
func (e *Engine) publish() *Session {
	s := &Session{
		ID:              e.id,
		StartTime:       e.startTime,
		Terrain:         e.env.Terrain,
		Weather:         e.env.Weather,
		NominalDuration: e.nominal,
		TickInterval:    e.interval,
		Round:           e.round,
		Elapsed:         e.elapsed,
		Status:          e.status,
		Participants:    make([]*Combatant, 0, len(e.participants)),
		Enemies:         make([]*Combatant, 0, len(e.enemies)),
		Events:          e.log.Events(),
	}
	if e.victory != nil {
		v := *e.victory
		s.Victory = &v
	}
	for _, p := range e.participants {
		s.Participants = append(s.Participants, p.clone())
	}
	for _, en := range e.enemies {
		s.Enemies = append(s.Enemies, en.clone())
	}
	e.version++
	e.snapshot.Store(s)
	return s
}

func downedDescription(c *Combatant) string {
	if c.Status == StatusDead {
		return c.Name + " is killed."
	}
	return c.Name + " is knocked out."
}

func environmentDescription(env Environment) string {
	terrain := env.Terrain
	if terrain == "" {
		terrain = "open ground"
	}
	weather := env.Weather
	if weather == "" {
		weather = "clear"
	}
	return fmt.Sprintf("Engagement begins on %s in %s conditions.", terrain, weather)
}

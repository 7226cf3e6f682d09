package combat

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/fieldops/internal/game/action"
	"github.com/cory-johannsen/fieldops/internal/game/effect"
)

// SessionStatus is the lifecycle state of a combat session.
type SessionStatus string

const (
	Running   SessionStatus = "running"
	Completed SessionStatus = "completed"
	ForcedEnd SessionStatus = "forced_end"
)

// IsTerminal reports whether s has no further transitions.
func (s SessionStatus) IsTerminal() bool { return s == Completed || s == ForcedEnd }

// ParticipantSpec is a read-only roster descriptor for one squad member.
type ParticipantSpec struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Health    int    `json:"health" yaml:"health"`
	MaxHealth int    `json:"max_health" yaml:"max_health"`
	Stats     `yaml:",inline"`
	MaxEnergy int      `json:"max_energy" yaml:"max_energy"`
	Equipment []string `json:"equipment" yaml:"equipment"`
}

// EnemySpec is a read-only descriptor for one opposing combatant.
type EnemySpec struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Health    int    `json:"health" yaml:"health"`
	MaxHealth int    `json:"max_health" yaml:"max_health"`
	Stats     `yaml:",inline"`
	MaxEnergy int `json:"max_energy" yaml:"max_energy"`
	// Behavior is derived from Intelligence when empty.
	Behavior Behavior `json:"behavior" yaml:"behavior"`
	Perks    []string `json:"perks" yaml:"perks"`
}

// MissionContext carries the environment tags of a mission.
type MissionContext struct {
	MissionID string `json:"mission_id" yaml:"mission_id"`
	Terrain   string `json:"terrain" yaml:"terrain"`
	Weather   string `json:"weather" yaml:"weather"`
	// NominalDuration is the cosmetic timer shown to the player. The engine
	// records it but never uses it to decide the outcome.
	NominalDuration time.Duration `json:"nominal_duration" yaml:"nominal_duration"`
}

// Session is an immutable end-of-tick snapshot of a combat session.
type Session struct {
	ID              string        `json:"id"`
	StartTime       time.Time     `json:"start_time"`
	Terrain         string        `json:"terrain"`
	Weather         string        `json:"weather"`
	NominalDuration time.Duration `json:"nominal_duration"`
	TickInterval    time.Duration `json:"tick_interval"`
	Round           int           `json:"round"`
	Elapsed         time.Duration `json:"elapsed"`
	Status          SessionStatus `json:"status"`
	// Victory is nil while the outcome is undecided.
	Victory      *bool        `json:"victory"`
	Participants []*Combatant `json:"participants"`
	Enemies      []*Combatant `json:"enemies"`
	Events       []Event      `json:"events"`
}

// Result is the finalized, immutable outcome of a session.
type Result struct {
	MissionID      string         `json:"mission_id"`
	Victory        bool           `json:"victory"`
	Status         SessionStatus  `json:"status"`
	ActualDuration time.Duration  `json:"actual_duration"`
	Rounds         int            `json:"rounds"`
	CompletedAt    time.Time      `json:"completed_at"`
	FinalHealths   map[string]int `json:"final_healths"`
	Events         []Event        `json:"events"`
}

// Clone returns a copy of r that shares no maps or slices with it.
// A nil receiver yields nil.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	if r.FinalHealths != nil {
		c.FinalHealths = make(map[string]int, len(r.FinalHealths))
		for id, hp := range r.FinalHealths {
			c.FinalHealths[id] = hp
		}
	}
	if r.Events != nil {
		c.Events = append([]Event(nil), r.Events...)
	}
	return &c
}

func newParticipant(i int, s ParticipantSpec) *Combatant {
	c := &Combatant{
		ID:        s.ID,
		Name:      s.Name,
		Side:      SideParticipant,
		Health:    s.Health,
		MaxHealth: s.MaxHealth,
		Stats:     s.Stats,
		Equipment: append([]string(nil), s.Equipment...),
		MaxEnergy: s.MaxEnergy,
	}
	if c.ID == "" {
		c.ID = fmt.Sprintf("participant-%d", i+1)
	}
	initCombatant(c)
	return c
}

func newEnemy(i int, s EnemySpec) *Combatant {
	c := &Combatant{
		ID:        s.ID,
		Name:      s.Name,
		Side:      SideEnemy,
		Health:    s.Health,
		MaxHealth: s.MaxHealth,
		Stats:     s.Stats,
		Behavior:  s.Behavior,
		Perks:     append([]string(nil), s.Perks...),
		MaxEnergy: s.MaxEnergy,
	}
	if c.ID == "" {
		c.ID = fmt.Sprintf("enemy-%d", i+1)
	}
	if c.Behavior == "" {
		c.Behavior = BehaviorFor(c.Intelligence)
	}
	initCombatant(c)
	return c
}

// initCombatant fills defaults shared by both sides.
//
// Postcondition: 0 <= Health <= MaxHealth; Energy == MaxEnergy; a combatant
// spawned with no health is already out of the fight.
func initCombatant(c *Combatant) {
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.MaxHealth <= 0 {
		c.MaxHealth = c.Health
	}
	if c.MaxHealth < 0 {
		c.MaxHealth = 0
	}
	c.Health = clamp(c.Health, 0, c.MaxHealth)
	if c.MaxEnergy <= 0 {
		c.MaxEnergy = defaultMaxEnergy
	}
	c.Energy = c.MaxEnergy
	if c.Morale == 0 {
		c.Morale = defaultMorale
	}
	c.Cooldowns = make(map[action.Type]int)
	c.active = effect.NewSet()
	c.Status = StatusFighting
	if c.Health == 0 {
		c.down()
	}
}

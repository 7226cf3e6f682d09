// Package combat implements the tick-driven resolution engine for one mission's
// combat session: action selection, legality, damage, decay and termination.
package combat

import (
	"github.com/cory-johannsen/fieldops/internal/game/action"
	"github.com/cory-johannsen/fieldops/internal/game/effect"
)

// Side distinguishes the player's squad from the opposing force.
type Side string

const (
	SideParticipant Side = "participant"
	SideEnemy       Side = "enemy"
)

// Status is a combatant's fighting state.
type Status string

const (
	StatusFighting   Status = "fighting"
	StatusKnockedOut Status = "knocked_out"
	StatusDead       Status = "dead"
)

// Behavior is an enemy's fixed tactical disposition.
type Behavior string

const (
	Aggressive Behavior = "aggressive"
	Defensive  Behavior = "defensive"
	Tactical   Behavior = "tactical"
	Fleeing    Behavior = "fleeing"
)

// BehaviorFor derives a Behavior from intelligence.
//
// Postcondition: >= 70 Tactical, >= 40 Defensive, >= 10 Aggressive, else Fleeing.
func BehaviorFor(intelligence int) Behavior {
	switch {
	case intelligence >= 70:
		return Tactical
	case intelligence >= 40:
		return Defensive
	case intelligence >= 10:
		return Aggressive
	default:
		return Fleeing
	}
}

// Stats are the combat statistics shared by both sides.
type Stats struct {
	Damage       int `json:"damage" yaml:"damage"`
	Accuracy     int `json:"accuracy" yaml:"accuracy"`
	Defense      int `json:"defense" yaml:"defense"`
	Stealth      int `json:"stealth" yaml:"stealth"`
	Intelligence int `json:"intelligence" yaml:"intelligence"`
	Morale       int `json:"morale" yaml:"morale"`
}

// Combatant is one actor in a session. Only the engine mutates a Combatant;
// Combatants reachable from a published Session are copies and must not be modified.
type Combatant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Side      Side   `json:"side"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"max_health"`
	Stats
	Equipment  []string            `json:"equipment,omitempty"`
	Behavior   Behavior            `json:"behavior,omitempty"`
	Perks      []string            `json:"perks,omitempty"`
	Status     Status              `json:"status"`
	Energy     int                 `json:"energy"`
	MaxEnergy  int                 `json:"max_energy"`
	Fatigue    int                 `json:"fatigue"`
	Cover      int                 `json:"cover"`
	Cooldowns  map[action.Type]int `json:"cooldowns,omitempty"`
	Effects    []effect.Active     `json:"effects,omitempty"`
	LastAction action.Type         `json:"last_action,omitempty"`

	active *effect.Set
}

// IsFighting reports whether c can still act and be targeted.
func (c *Combatant) IsFighting() bool { return c.Status == StatusFighting }

// HealthFraction returns Health/MaxHealth, or 0 when MaxHealth is zero.
func (c *Combatant) HealthFraction() float64 {
	if c.MaxHealth <= 0 {
		return 0
	}
	return float64(c.Health) / float64(c.MaxHealth)
}

// HasEquipment reports whether c carries an item tagged tag.
func (c *Combatant) HasEquipment(tag string) bool {
	for _, e := range c.Equipment {
		if e == tag {
			return true
		}
	}
	return false
}

// ApplyDamage reduces Health by amount, flooring at zero. A combatant reaching
// zero leaves the fight: participants are knocked out, enemies die.
//
// Precondition: amount must be >= 0.
// Postcondition: 0 <= Health <= MaxHealth; returns true if this call took c out of the fight.
func (c *Combatant) ApplyDamage(amount int) bool {
	c.Health -= amount
	if c.Health < 0 {
		c.Health = 0
	}
	if c.Health == 0 && c.IsFighting() {
		c.down()
		return true
	}
	return false
}

// Heal raises Health by amount, capped at MaxHealth, and returns the amount restored.
func (c *Combatant) Heal(amount int) int {
	before := c.Health
	c.Health += amount
	if c.Health > c.MaxHealth {
		c.Health = c.MaxHealth
	}
	return c.Health - before
}

func (c *Combatant) down() {
	if c.Side == SideEnemy {
		c.Status = StatusDead
		return
	}
	c.Status = StatusKnockedOut
}

// clone returns a deep copy of c with Effects materialised from the active set.
func (c *Combatant) clone() *Combatant {
	cp := *c
	cp.Equipment = append([]string(nil), c.Equipment...)
	cp.Perks = append([]string(nil), c.Perks...)
	cp.Cooldowns = make(map[action.Type]int, len(c.Cooldowns))
	for k, v := range c.Cooldowns {
		cp.Cooldowns[k] = v
	}
	if c.active != nil {
		cp.active = c.active.Clone()
		cp.Effects = c.active.All()
	}
	return &cp
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

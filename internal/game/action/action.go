// Package action defines the closed catalog of combat actions. Entries are pure
// configuration; the combat engine is the only component that interprets them.
package action

import (
	"errors"
	"fmt"
)

// Type identifies one catalog action. The set of valid values is closed.
type Type string

const (
	BasicAttack   Type = "basic_attack"
	PrecisionShot Type = "precision_shot"
	Rush          Type = "rush"
	Flank         Type = "flank"
	Ambush        Type = "ambush"
	Breach        Type = "breach"
	GrenadeThrow  Type = "grenade_throw"
	Execute       Type = "execute"

	Dodge        Type = "dodge"
	Duck         Type = "duck"
	TakeCover    Type = "take_cover"
	DiveForCover Type = "dive_for_cover"
	Block        Type = "block"
	Retreat      Type = "retreat"

	Overwatch     Type = "overwatch"
	StealthMove   Type = "stealth_move"
	Smoke         Type = "smoke"
	Rally         Type = "rally"
	FieldMedicine Type = "field_medicine"
	Reposition    Type = "reposition"
	Coordinate    Type = "coordinate"
	Observe       Type = "observe"

	CounterAttack Type = "counter_attack"
	Suppress      Type = "suppress"
	Intimidate    Type = "intimidate"
)

// Types lists every valid Type in catalog order.
var Types = []Type{
	BasicAttack, PrecisionShot, Rush, Flank, Ambush, Breach, GrenadeThrow, Execute,
	Dodge, Duck, TakeCover, DiveForCover, Block, Retreat,
	Overwatch, StealthMove, Smoke, Rally, FieldMedicine, Reposition, Coordinate, Observe,
	CounterAttack, Suppress, Intimidate,
}

// IsKnown reports whether t belongs to the closed action set.
func (t Type) IsKnown() bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

// Category groups actions by how the engine executes them.
type Category string

const (
	Offensive Category = "offensive"
	Defensive Category = "defensive"
	Tactical  Category = "tactical"
	Special   Category = "special"
)

// Scope names who an action's effect lands on.
type Scope string

const (
	ScopeEnemy  Scope = "enemy"
	ScopeSelf   Scope = "self"
	ScopeAllies Scope = "allies"
)

// Requirements is the legality predicate of a Definition expressed as data.
// Zero values mean "no requirement".
type Requirements struct {
	MinDamage       int `yaml:"min_damage"`
	MinAccuracy     int `yaml:"min_accuracy"`
	MinDefense      int `yaml:"min_defense"`
	MinStealth      int `yaml:"min_stealth"`
	MinIntelligence int `yaml:"min_intelligence"`
	MinMorale       int `yaml:"min_morale"`
	// Equipment is a required equipment category tag, e.g. "explosive".
	Equipment string `yaml:"equipment"`
	// Terrain lists terrains in which the action is allowed; empty = any.
	Terrain []string `yaml:"terrain"`
	// MinHealthFraction is the minimum health/maxHealth ratio, in [0, 1].
	MinHealthFraction float64 `yaml:"min_health_fraction"`
}

// Effect holds the numeric deltas an action applies when executed.
//
// For enemy-scoped actions AccuracyDelta modifies the hit roll, while
// DefenseDelta/StealthDelta land on the actor and TargetAccuracyDelta/
// TargetMoraleDelta land on the target on hit.
type Effect struct {
	DamageMultiplier    float64 `yaml:"damage_multiplier"`
	AccuracyDelta       int     `yaml:"accuracy_delta"`
	DefenseDelta        int     `yaml:"defense_delta"`
	StealthDelta        int     `yaml:"stealth_delta"`
	MoraleDelta         int     `yaml:"morale_delta"`
	TargetAccuracyDelta int     `yaml:"target_accuracy_delta"`
	TargetMoraleDelta   int     `yaml:"target_morale_delta"`
	Cover               int     `yaml:"cover"`
	Heal                int     `yaml:"heal"`
	// Duration is how many ticks stat deltas persist as an active effect.
	Duration int `yaml:"duration"`
}

// Definition is one immutable catalog entry.
type Definition struct {
	Type         Type         `yaml:"type"`
	Category     Category     `yaml:"category"`
	Name         string       `yaml:"name"`
	Scope        Scope        `yaml:"scope"`
	Requirements Requirements `yaml:"requirements"`
	Effect       Effect       `yaml:"effect"`
	Cooldown     int          `yaml:"cooldown"`
	EnergyCost   int          `yaml:"energy_cost"`
}

// Validate checks the invariants every Definition must satisfy.
//
// Postcondition: nil return guarantees a known Type, a known Category and Scope,
// non-negative Cooldown/EnergyCost/Duration/Heal, and a health fraction in [0, 1].
func (d *Definition) Validate() error {
	var errs []error
	if !d.Type.IsKnown() {
		errs = append(errs, fmt.Errorf("unknown action type %q", d.Type))
	}
	switch d.Category {
	case Offensive, Defensive, Tactical, Special:
	default:
		errs = append(errs, fmt.Errorf("action %q: unknown category %q", d.Type, d.Category))
	}
	switch d.Scope {
	case ScopeEnemy, ScopeSelf, ScopeAllies:
	default:
		errs = append(errs, fmt.Errorf("action %q: unknown scope %q", d.Type, d.Scope))
	}
	if d.Name == "" {
		errs = append(errs, fmt.Errorf("action %q: name must not be empty", d.Type))
	}
	if d.Cooldown < 0 || d.EnergyCost < 0 {
		errs = append(errs, fmt.Errorf("action %q: cooldown and energy_cost must be >= 0", d.Type))
	}
	if d.Effect.Duration < 0 || d.Effect.Heal < 0 || d.Effect.DamageMultiplier < 0 {
		errs = append(errs, fmt.Errorf("action %q: duration, heal and damage_multiplier must be >= 0", d.Type))
	}
	if f := d.Requirements.MinHealthFraction; f < 0 || f > 1 {
		errs = append(errs, fmt.Errorf("action %q: min_health_fraction must be in [0, 1], got %v", d.Type, f))
	}
	if d.Category == Offensive && d.Scope != ScopeEnemy {
		errs = append(errs, fmt.Errorf("action %q: offensive actions must target enemies", d.Type))
	}
	return errors.Join(errs...)
}

// AllowsTerrain reports whether the action may be used on terrain.
func (r Requirements) AllowsTerrain(terrain string) bool {
	if len(r.Terrain) == 0 {
		return true
	}
	for _, t := range r.Terrain {
		if t == terrain {
			return true
		}
	}
	return false
}

package combat

import (
	"math"

	"github.com/cory-johannsen/fieldops/internal/game/action"
	"github.com/cory-johannsen/fieldops/internal/game/dice"
	"github.com/cory-johannsen/fieldops/internal/game/effect"
)

// AttackResult holds the outcome of one enemy-scoped action.
type AttackResult struct {
	AttackerID string
	TargetID   string
	// Chance is the hit chance in percent; values outside [0, 100] are not clamped.
	Chance int
	// Roll is the percentile roll in [0, 100).
	Roll int
	Hit  bool
	// Damage is the health removed from the target; zero on a miss or for
	// non-damaging actions.
	Damage int
}

// HitChance returns attacker's chance, in percent, to land def on target.
func HitChance(attacker, target *Combatant, def *action.Definition, env Environment) int {
	chance := attacker.Accuracy +
		effect.AccuracyBonus(attacker.active) +
		def.Effect.AccuracyDelta +
		attacker.Cover +
		env.AccuracyModifier() -
		attacker.Fatigue/10 -
		effect.StealthBonus(target.active)/2
	if attacker.Morale < lowMorale {
		chance -= lowMoralePenalty
	}
	return chance
}

// Damage computes the damage def inflicts from attacker on target given a
// variance roll.
//
// Postcondition: Returns >= 1.
func Damage(attacker, target *Combatant, def *action.Definition, env Environment, cfg Config, variance int) int {
	raw := float64(attacker.Damage)*def.Effect.DamageMultiplier + float64(variance)
	defense := target.Defense + effect.DefenseBonus(target.active) + target.Cover/2
	raw -= float64(defense) * cfg.DefenseFactor
	raw *= env.TerrainMultiplier(def.Type)
	raw *= env.DamageMultiplier()
	raw *= OutgoingPerkMultiplier(attacker.Perks)
	raw *= IncomingPerkMultiplier(target.Perks)
	if raw < 1 {
		raw = 1
	}
	dmg := int(math.Round(raw * cfg.PacingFactor))
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// ResolveAttack rolls the hit check and, on a hit with a damaging action, the
// damage of def from attacker against target. It does not mutate either side.
//
// Precondition: attacker and target must be non-nil and fighting.
// Postcondition: Damage > 0 iff Hit and def.Effect.DamageMultiplier > 0.
func ResolveAttack(attacker, target *Combatant, def *action.Definition, env Environment, cfg Config, variance dice.Expression, r *dice.Roller) AttackResult {
	res := AttackResult{AttackerID: attacker.ID, TargetID: target.ID}
	res.Chance = HitChance(attacker, target, def, env)
	res.Roll, res.Hit = r.Percentile(res.Chance)
	if !res.Hit || def.Effect.DamageMultiplier <= 0 {
		return res
	}
	res.Damage = Damage(attacker, target, def, env, cfg, r.Roll(variance).Total())
	return res
}

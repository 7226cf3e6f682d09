package combat

import (
	"github.com/cory-johannsen/fieldops/internal/game/action"
)

// CanPerform reports whether c may execute def right now on terrain.
//
// Postcondition: true iff the cooldown is zero, energy covers the cost, and
// every stat, equipment, terrain and health requirement holds.
func CanPerform(c *Combatant, def *action.Definition, terrain string) bool {
	if c.Cooldowns[def.Type] > 0 {
		return false
	}
	if c.Energy < def.EnergyCost {
		return false
	}
	r := def.Requirements
	switch {
	case c.Damage < r.MinDamage,
		c.Accuracy < r.MinAccuracy,
		c.Defense < r.MinDefense,
		c.Stealth < r.MinStealth,
		c.Intelligence < r.MinIntelligence,
		c.Morale < r.MinMorale:
		return false
	}
	if r.Equipment != "" && !c.HasEquipment(r.Equipment) {
		return false
	}
	if !r.AllowsTerrain(terrain) {
		return false
	}
	if r.MinHealthFraction > 0 && c.HealthFraction() < r.MinHealthFraction {
		return false
	}
	return true
}

// LegalActions filters candidates down to those c may perform, preserving order.
// Types missing from catalog are dropped.
func LegalActions(c *Combatant, candidates []action.Type, catalog *action.Catalog, terrain string) []*action.Definition {
	var out []*action.Definition
	for _, t := range candidates {
		def, ok := catalog.Get(t)
		if !ok {
			continue
		}
		if CanPerform(c, def, terrain) {
			out = append(out, def)
		}
	}
	return out
}

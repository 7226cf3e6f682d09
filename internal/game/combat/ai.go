package combat

import (
	"github.com/cory-johannsen/fieldops/internal/game/action"
	"github.com/cory-johannsen/fieldops/internal/game/dice"
)

const (
	criticalHealth = 0.25
	moderateHealth = 0.5

	highIntelligence = 70
	highStealth      = 60
	highDamage       = 40
)

var (
	criticalPrefs     = []action.Type{action.Retreat, action.DiveForCover, action.TakeCover}
	moderatePrefs     = []action.Type{action.FieldMedicine, action.TakeCover, action.Block, action.Dodge, action.Duck}
	intelligencePrefs = []action.Type{action.Flank, action.Overwatch, action.Coordinate, action.PrecisionShot, action.Observe, action.Smoke}
	stealthPrefs      = []action.Type{action.Ambush, action.StealthMove, action.Flank}
	damagePrefs       = []action.Type{action.BasicAttack, action.PrecisionShot, action.Rush, action.Execute, action.GrenadeThrow, action.Breach}

	enemyPrefs = map[Behavior][]action.Type{
		Aggressive: {action.BasicAttack, action.Rush, action.Execute},
		Tactical:   {action.Flank, action.Overwatch, action.Coordinate},
		Fleeing:    {action.Retreat, action.DiveForCover, action.Dodge},
	}
	defensiveHurtPrefs  = []action.Type{action.TakeCover, action.Dodge, action.Retreat}
	defensiveFreshPrefs = []action.Type{action.BasicAttack, action.Suppress}
)

// ParticipantPreferences returns the ordered candidate list the squad AI
// considers for c, or nil when c falls through to the default weighted choice.
func ParticipantPreferences(c *Combatant) []action.Type {
	hp := c.HealthFraction()
	switch {
	case hp < criticalHealth:
		return criticalPrefs
	case hp < moderateHealth:
		return moderatePrefs
	case c.Intelligence >= highIntelligence:
		return intelligencePrefs
	case c.Stealth >= highStealth:
		return stealthPrefs
	case c.Damage >= highDamage:
		return damagePrefs
	default:
		return nil
	}
}

// ChooseParticipantAction selects one legal action for a squad member.
//
// Postcondition: Returns a non-nil legal Definition when basic_attack is legal.
func ChooseParticipantAction(c *Combatant, catalog *action.Catalog, terrain string, src dice.Source) *action.Definition {
	if legal := LegalActions(c, ParticipantPreferences(c), catalog, terrain); len(legal) > 0 {
		return legal[src.Intn(len(legal))]
	}
	// Default: basic_attack 3 : take_cover 1.
	if src.Intn(4) == 3 {
		if legal := LegalActions(c, []action.Type{action.TakeCover}, catalog, terrain); len(legal) > 0 {
			return legal[0]
		}
	}
	return fallback(c, catalog, terrain)
}

// EnemyPreferences returns the candidate list for an enemy's behavior.
func EnemyPreferences(c *Combatant) []action.Type {
	if c.Behavior == Defensive {
		if c.HealthFraction() < moderateHealth {
			return defensiveHurtPrefs
		}
		return defensiveFreshPrefs
	}
	return enemyPrefs[c.Behavior]
}

// ChooseEnemyAction selects one legal action for an enemy, falling back to
// basic_attack when no preference is legal.
func ChooseEnemyAction(c *Combatant, catalog *action.Catalog, terrain string, src dice.Source) *action.Definition {
	if legal := LegalActions(c, EnemyPreferences(c), catalog, terrain); len(legal) > 0 {
		return legal[src.Intn(len(legal))]
	}
	return fallback(c, catalog, terrain)
}

func fallback(c *Combatant, catalog *action.Catalog, terrain string) *action.Definition {
	if legal := LegalActions(c, []action.Type{action.BasicAttack}, catalog, terrain); len(legal) > 0 {
		return legal[0]
	}
	return nil
}

// ChooseTarget picks the opponent attacker aims an enemy-scoped action at.
// High-intelligence participants focus the weakest opponent; everyone else
// picks uniformly among fighting opponents.
//
// Postcondition: Returns nil iff no opponent is fighting.
func ChooseTarget(attacker *Combatant, opponents []*Combatant, src dice.Source) *Combatant {
	living := fighting(opponents)
	if len(living) == 0 {
		return nil
	}
	if attacker.Side == SideParticipant && attacker.Intelligence >= highIntelligence {
		weakest := living[0]
		for _, o := range living[1:] {
			if o.Health < weakest.Health {
				weakest = o
			}
		}
		return weakest
	}
	return living[src.Intn(len(living))]
}

// weakestAlly returns the fighting ally with the lowest health fraction.
func weakestAlly(allies []*Combatant) *Combatant {
	var out *Combatant
	for _, a := range fighting(allies) {
		if out == nil || a.HealthFraction() < out.HealthFraction() {
			out = a
		}
	}
	return out
}

func fighting(cs []*Combatant) []*Combatant {
	var out []*Combatant
	for _, c := range cs {
		if c.IsFighting() {
			out = append(out, c)
		}
	}
	return out
}

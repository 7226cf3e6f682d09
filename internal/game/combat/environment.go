package combat

import "github.com/cory-johannsen/fieldops/internal/game/action"

type weatherEffect struct {
	accuracy int
	damage   float64
	adverse  bool
}

var weatherTable = map[string]weatherEffect{
	"fog":        {accuracy: -15, damage: 0.8, adverse: true},
	"dust_storm": {accuracy: -20, damage: 0.75, adverse: true},
	"rain":       {accuracy: -5, damage: 0.9, adverse: true},
	"snow":       {accuracy: -10, damage: 0.9, adverse: true},
	"night":      {accuracy: -10, damage: 1.0},
}

// Environment is the terrain and weather a session is fought in.
type Environment struct {
	Terrain string
	Weather string
}

// AccuracyModifier returns the weather's hit-chance modifier; unknown weather is 0.
func (e Environment) AccuracyModifier() int {
	return weatherTable[e.Weather].accuracy
}

// DamageMultiplier returns the weather's damage multiplier; unknown weather is 1.
func (e Environment) DamageMultiplier() float64 {
	if w, ok := weatherTable[e.Weather]; ok {
		return w.damage
	}
	return 1
}

// Adverse reports whether the weather erodes morale each tick.
func (e Environment) Adverse() bool {
	return weatherTable[e.Weather].adverse
}

// TerrainMultiplier returns the damage bonus t receives on this terrain.
func (e Environment) TerrainMultiplier(t action.Type) float64 {
	switch {
	case t == action.Ambush && e.Terrain == "forest":
		return 1.5
	case t == action.Ambush && e.Terrain == "jungle":
		return 1.4
	case t == action.Breach && e.Terrain == "urban":
		return 1.3
	case t == action.GrenadeThrow && e.Terrain == "urban":
		return 1.2
	default:
		return 1
	}
}

type perkModifier struct {
	outgoing float64
	incoming float64
}

var perkTable = map[string]perkModifier{
	"marksman":  {outgoing: 1.15, incoming: 1},
	"brute":     {outgoing: 1.25, incoming: 1},
	"veteran":   {outgoing: 1.10, incoming: 1},
	"armored":   {outgoing: 1, incoming: 0.80},
	"berserker": {outgoing: 1.30, incoming: 1.10},
}

// OutgoingPerkMultiplier returns the product of outgoing damage modifiers for
// perks. Unknown perks are ignored.
func OutgoingPerkMultiplier(perks []string) float64 {
	m := 1.0
	for _, p := range perks {
		if pm, ok := perkTable[p]; ok {
			m *= pm.outgoing
		}
	}
	return m
}

// IncomingPerkMultiplier returns the product of incoming damage modifiers for
// perks. Unknown perks are ignored.
func IncomingPerkMultiplier(perks []string) float64 {
	m := 1.0
	for _, p := range perks {
		if pm, ok := perkTable[p]; ok {
			m *= pm.incoming
		}
	}
	return m
}

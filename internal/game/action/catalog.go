package action

import "fmt"

// Catalog indexes Definitions by Type.
//
// Invariant: every Type in Types has exactly one Definition once built by Default.
// A Catalog is read-only after construction and safe for concurrent reads.
type Catalog struct {
	defs map[Type]*Definition
}

// Default returns the built-in catalog of all 25 actions.
//
// Postcondition: len(All()) == len(Types) and every entry passes Validate.
func Default() *Catalog {
	c := &Catalog{defs: make(map[Type]*Definition, len(builtin))}
	for i := range builtin {
		d := builtin[i]
		c.defs[d.Type] = &d
	}
	return c
}

// Get returns the Definition for t, or (nil, false) if absent.
func (c *Catalog) Get(t Type) (*Definition, bool) {
	d, ok := c.defs[t]
	return d, ok
}

// MustGet returns the Definition for t and panics if it is missing.
func (c *Catalog) MustGet(t Type) *Definition {
	d, ok := c.defs[t]
	if !ok {
		panic(fmt.Sprintf("action: catalog has no definition for %q", t))
	}
	return d
}

// All returns every Definition in catalog order.
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, 0, len(c.defs))
	for _, t := range Types {
		if d, ok := c.defs[t]; ok {
			out = append(out, d)
		}
	}
	return out
}

// ByCategory returns the Definitions in cat, in catalog order.
func (c *Catalog) ByCategory(cat Category) []*Definition {
	var out []*Definition
	for _, d := range c.All() {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}

// Override returns a new Catalog where each override replaces the entry of
// the same Type. The receiver is left unchanged.
//
// Precondition: every override must pass Validate.
// Postcondition: Returns an error naming the first invalid override.
func (c *Catalog) Override(overrides []*Definition) (*Catalog, error) {
	out := &Catalog{defs: make(map[Type]*Definition, len(c.defs))}
	for t, d := range c.defs {
		out.defs[t] = d
	}
	for _, o := range overrides {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("invalid override: %w", err)
		}
		d := *o
		d.Requirements.Terrain = append([]string(nil), o.Requirements.Terrain...)
		out.defs[d.Type] = &d
	}
	return out, nil
}

var builtin = []Definition{
	// Offensive.
	{Type: BasicAttack, Category: Offensive, Name: "attacks", Scope: ScopeEnemy,
		Effect: Effect{DamageMultiplier: 1.0}},
	{Type: PrecisionShot, Category: Offensive, Name: "lines up a precision shot on", Scope: ScopeEnemy,
		Requirements: Requirements{MinAccuracy: 60},
		Effect:       Effect{DamageMultiplier: 1.3, AccuracyDelta: 15},
		Cooldown:     2, EnergyCost: 15},
	{Type: Rush, Category: Offensive, Name: "rushes", Scope: ScopeEnemy,
		Requirements: Requirements{MinHealthFraction: 0.4},
		Effect:       Effect{DamageMultiplier: 1.4, DefenseDelta: -10, Duration: 1},
		Cooldown:     2, EnergyCost: 20},
	{Type: Flank, Category: Offensive, Name: "flanks", Scope: ScopeEnemy,
		Requirements: Requirements{MinIntelligence: 40},
		Effect:       Effect{DamageMultiplier: 1.5, AccuracyDelta: 10},
		Cooldown:     3, EnergyCost: 20},
	{Type: Ambush, Category: Offensive, Name: "springs an ambush on", Scope: ScopeEnemy,
		Requirements: Requirements{MinStealth: 40},
		Effect:       Effect{DamageMultiplier: 1.8, AccuracyDelta: 20},
		Cooldown:     4, EnergyCost: 25},
	{Type: Breach, Category: Offensive, Name: "breaches the position of", Scope: ScopeEnemy,
		Requirements: Requirements{Terrain: []string{"urban", "industrial"}},
		Effect:       Effect{DamageMultiplier: 1.6, AccuracyDelta: 5},
		Cooldown:     4, EnergyCost: 30},
	{Type: GrenadeThrow, Category: Offensive, Name: "lobs a grenade at", Scope: ScopeEnemy,
		Requirements: Requirements{Equipment: "explosive"},
		Effect:       Effect{DamageMultiplier: 2.0, AccuracyDelta: 10},
		Cooldown:     5, EnergyCost: 35},
	{Type: Execute, Category: Offensive, Name: "moves in to finish", Scope: ScopeEnemy,
		Requirements: Requirements{MinDamage: 30},
		Effect:       Effect{DamageMultiplier: 1.8},
		Cooldown:     4, EnergyCost: 30},

	// Defensive.
	{Type: Dodge, Category: Defensive, Name: "weaves out of the line of fire", Scope: ScopeSelf,
		Effect:   Effect{DefenseDelta: 15, Duration: 1},
		Cooldown: 1, EnergyCost: 10},
	{Type: Duck, Category: Defensive, Name: "ducks low", Scope: ScopeSelf,
		Effect:   Effect{Cover: 10},
		Cooldown: 1, EnergyCost: 5},
	{Type: TakeCover, Category: Defensive, Name: "takes cover", Scope: ScopeSelf,
		Effect:   Effect{DefenseDelta: 5, Cover: 20, Duration: 1},
		Cooldown: 1, EnergyCost: 5},
	{Type: DiveForCover, Category: Defensive, Name: "dives for cover", Scope: ScopeSelf,
		Effect:   Effect{DefenseDelta: 10, Cover: 35, Duration: 1},
		Cooldown: 3, EnergyCost: 15},
	{Type: Block, Category: Defensive, Name: "braces to block", Scope: ScopeSelf,
		Requirements: Requirements{MinDefense: 10},
		Effect:       Effect{DefenseDelta: 25, Duration: 1},
		Cooldown:     2, EnergyCost: 10},
	{Type: Retreat, Category: Defensive, Name: "falls back", Scope: ScopeSelf,
		Effect:   Effect{DefenseDelta: 30, StealthDelta: 20, Cover: 15, Duration: 2},
		Cooldown: 4, EnergyCost: 20},

	// Tactical.
	{Type: Overwatch, Category: Tactical, Name: "settles into overwatch", Scope: ScopeSelf,
		Requirements: Requirements{MinAccuracy: 40},
		Effect:       Effect{AccuracyDelta: 15, DefenseDelta: 5, Duration: 2},
		Cooldown:     3, EnergyCost: 15},
	{Type: StealthMove, Category: Tactical, Name: "slips into the shadows", Scope: ScopeSelf,
		Requirements: Requirements{MinStealth: 30},
		Effect:       Effect{DefenseDelta: 5, StealthDelta: 25, Duration: 2},
		Cooldown:     3, EnergyCost: 15},
	{Type: Smoke, Category: Tactical, Name: "pops smoke over the squad", Scope: ScopeAllies,
		Requirements: Requirements{Equipment: "smoke"},
		Effect:       Effect{DefenseDelta: 10, StealthDelta: 15, Duration: 2},
		Cooldown:     5, EnergyCost: 20},
	{Type: Rally, Category: Tactical, Name: "rallies the squad", Scope: ScopeAllies,
		Requirements: Requirements{MinMorale: 50},
		Effect:       Effect{MoraleDelta: 15},
		Cooldown:     6, EnergyCost: 25},
	{Type: FieldMedicine, Category: Tactical, Name: "patches up", Scope: ScopeAllies,
		Requirements: Requirements{Equipment: "medkit"},
		Effect:       Effect{Heal: 20},
		Cooldown:     4, EnergyCost: 25},
	{Type: Reposition, Category: Tactical, Name: "repositions", Scope: ScopeSelf,
		Effect:   Effect{AccuracyDelta: 5, DefenseDelta: 5, Cover: 10, Duration: 1},
		Cooldown: 2, EnergyCost: 10},
	{Type: Coordinate, Category: Tactical, Name: "coordinates fire", Scope: ScopeAllies,
		Requirements: Requirements{MinIntelligence: 50},
		Effect:       Effect{AccuracyDelta: 10, Duration: 2},
		Cooldown:     5, EnergyCost: 20},
	{Type: Observe, Category: Tactical, Name: "studies the enemy line", Scope: ScopeSelf,
		Requirements: Requirements{MinIntelligence: 20},
		Effect:       Effect{AccuracyDelta: 10, Duration: 2},
		Cooldown:     2, EnergyCost: 5},

	// Special.
	{Type: CounterAttack, Category: Special, Name: "counter-attacks", Scope: ScopeEnemy,
		Requirements: Requirements{MinHealthFraction: 0.3},
		Effect:       Effect{DamageMultiplier: 1.2, AccuracyDelta: 5},
		Cooldown:     3, EnergyCost: 20},
	{Type: Suppress, Category: Special, Name: "lays down suppressing fire on", Scope: ScopeEnemy,
		Requirements: Requirements{MinAccuracy: 40},
		Effect:       Effect{DamageMultiplier: 0.5, TargetAccuracyDelta: -15, Duration: 2},
		Cooldown:     3, EnergyCost: 25},
	{Type: Intimidate, Category: Special, Name: "tries to intimidate", Scope: ScopeEnemy,
		Requirements: Requirements{MinMorale: 50},
		Effect:       Effect{TargetMoraleDelta: -15},
		Cooldown:     4, EnergyCost: 15},
}

// Package effect tracks time-limited stat modifiers applied to one combatant.
package effect

import "fmt"

// Active is one applied modifier. Deltas are summed across the set.
type Active struct {
	// Source is the action tag that applied the effect.
	Source    string `json:"source"`
	Accuracy  int    `json:"accuracy,omitempty"`
	Defense   int    `json:"defense,omitempty"`
	Stealth   int    `json:"stealth,omitempty"`
	Remaining int    `json:"remaining"`
}

// Set tracks every effect currently applied to one combatant, keyed by Source.
// It is not safe for concurrent use; the caller must serialise access.
type Set struct {
	order   []string
	effects map[string]*Active
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{effects: make(map[string]*Active)}
}

// Apply adds a, or refreshes the effect with the same Source.
//
// Precondition: a.Source must not be empty and a.Remaining must be > 0.
// Postcondition: Has(a.Source) is true; on re-apply deltas are replaced and
// Remaining becomes max(existing, a.Remaining).
func (s *Set) Apply(a Active) error {
	if a.Source == "" {
		return fmt.Errorf("Apply: source must not be empty")
	}
	if a.Remaining <= 0 {
		return fmt.Errorf("Apply: effect %q must last at least one tick, got %d", a.Source, a.Remaining)
	}
	if existing, ok := s.effects[a.Source]; ok {
		rem := existing.Remaining
		*existing = a
		if rem > existing.Remaining {
			existing.Remaining = rem
		}
		return nil
	}
	cp := a
	s.effects[a.Source] = &cp
	s.order = append(s.order, a.Source)
	return nil
}

// Tick decrements Remaining on every effect and removes those reaching zero.
//
// Postcondition: For every source in the returned slice, Has(source) is false.
func (s *Set) Tick() []string {
	var expired []string
	kept := s.order[:0]
	for _, src := range s.order {
		a := s.effects[src]
		a.Remaining--
		if a.Remaining <= 0 {
			expired = append(expired, src)
			delete(s.effects, src)
			continue
		}
		kept = append(kept, src)
	}
	s.order = kept
	return expired
}

// Has reports whether an effect from source is active.
func (s *Set) Has(source string) bool {
	_, ok := s.effects[source]
	return ok
}

// Len returns the number of active effects.
func (s *Set) Len() int { return len(s.effects) }

// All returns copies of the active effects in application order.
func (s *Set) All() []Active {
	out := make([]Active, 0, len(s.order))
	for _, src := range s.order {
		out = append(out, *s.effects[src])
	}
	return out
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	c := NewSet()
	for _, a := range s.All() {
		cp := a
		c.effects[a.Source] = &cp
		c.order = append(c.order, a.Source)
	}
	return c
}

package effect

// A nil *Set contributes no modifiers.

// AccuracyBonus returns the summed accuracy delta of all active effects.
func AccuracyBonus(s *Set) int {
	if s == nil {
		return 0
	}
	total := 0
	for _, a := range s.effects {
		total += a.Accuracy
	}
	return total
}

// DefenseBonus returns the summed defense delta of all active effects.
func DefenseBonus(s *Set) int {
	if s == nil {
		return 0
	}
	total := 0
	for _, a := range s.effects {
		total += a.Defense
	}
	return total
}

// StealthBonus returns the summed stealth delta of all active effects.
func StealthBonus(s *Set) int {
	if s == nil {
		return 0
	}
	total := 0
	for _, a := range s.effects {
		total += a.Stealth
	}
	return total
}

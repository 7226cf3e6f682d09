package combat

import "time"

const (
	defaultMaxEnergy = 100
	defaultMorale    = 70
	maxCover         = 50
	maxFatigue       = 100
	maxMorale        = 100
	lowMorale        = 25
	lowMoralePenalty = 10
)

// Config holds the engine's tunable constants. Zero fields take the defaults
// of DefaultConfig.
type Config struct {
	TickMin       time.Duration
	TickMax       time.Duration
	TickStep      time.Duration
	SafetyTimeout time.Duration
	EventLogCap   int
	PacingFactor  float64
	DefenseFactor float64
	EnergyRegen   int
	CoverDecay    int
	// Variance is the dice expression added to raw damage.
	Variance string
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		TickMin:       time.Second,
		TickMax:       3 * time.Second,
		TickStep:      250 * time.Millisecond,
		SafetyTimeout: 4 * time.Hour,
		EventLogCap:   500,
		PacingFactor:  0.5,
		DefenseFactor: 0.5,
		EnergyRegen:   5,
		CoverDecay:    10,
		Variance:      "1d5-3",
	}
}

// WithDefaults returns c with every zero field replaced by its default.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.TickMin <= 0 {
		c.TickMin = d.TickMin
	}
	if c.TickMax <= 0 {
		c.TickMax = d.TickMax
	}
	if c.TickMax < c.TickMin {
		c.TickMax = c.TickMin
	}
	if c.TickStep <= 0 {
		c.TickStep = d.TickStep
	}
	if c.SafetyTimeout <= 0 {
		c.SafetyTimeout = d.SafetyTimeout
	}
	if c.EventLogCap <= 0 {
		c.EventLogCap = d.EventLogCap
	}
	if c.PacingFactor <= 0 {
		c.PacingFactor = d.PacingFactor
	}
	if c.DefenseFactor <= 0 {
		c.DefenseFactor = d.DefenseFactor
	}
	if c.EnergyRegen <= 0 {
		c.EnergyRegen = d.EnergyRegen
	}
	if c.CoverDecay <= 0 {
		c.CoverDecay = d.CoverDecay
	}
	if c.Variance == "" {
		c.Variance = d.Variance
	}
	return c
}

// TickInterval returns the cadence for a session with actors combatants.
//
// Postcondition: TickMin <= result <= TickMax; non-increasing in actors.
func (c Config) TickInterval(actors int) time.Duration {
	d := c.TickMax - time.Duration(actors-2)*c.TickStep
	if d > c.TickMax {
		d = c.TickMax
	}
	if d < c.TickMin {
		d = c.TickMin
	}
	return d
}

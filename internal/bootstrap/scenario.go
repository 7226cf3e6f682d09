package bootstrap

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/fieldops/internal/game/combat"
)

// Scenario is one encounter described in YAML, used by the simulator and the
// CLI client to start sessions.
type Scenario struct {
	MissionID    string                   `yaml:"mission_id"`
	Context      combat.MissionContext    `yaml:"context"`
	Participants []combat.ParticipantSpec `yaml:"participants"`
	Enemies      []combat.EnemySpec       `yaml:"enemies"`
}

// LoadScenario reads and validates a scenario file. Unknown fields are rejected.
//
// Postcondition: Returns a Scenario with a mission id, at least one
// participant and at least one enemy, or a non-nil error.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if s.Context.MissionID == "" {
		s.Context.MissionID = s.MissionID
	}
	return &s, nil
}

// Validate checks the minimum a scenario needs to start a session.
func (s *Scenario) Validate() error {
	var errs []error
	if s.MissionID == "" {
		errs = append(errs, errors.New("mission_id must not be empty"))
	}
	if len(s.Participants) == 0 {
		errs = append(errs, errors.New("at least one participant is required"))
	}
	if len(s.Enemies) == 0 {
		errs = append(errs, errors.New("at least one enemy is required"))
	}
	for i, p := range s.Participants {
		if p.Health < 0 {
			errs = append(errs, fmt.Errorf("participant %d: health must be >= 0", i))
		}
	}
	for i, e := range s.Enemies {
		if e.Health < 0 {
			errs = append(errs, fmt.Errorf("enemy %d: health must be >= 0", i))
		}
	}
	return errors.Join(errs...)
}

package combat

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/fieldops/internal/game/action"
)

// EventType classifies an Event.
type EventType string

const (
	EventAction        EventType = "action"
	EventDamage        EventType = "damage"
	EventStatus        EventType = "status"
	EventEnvironmental EventType = "environmental"
	EventVictory       EventType = "victory"
	EventDefeat        EventType = "defeat"
)

// Outcome records whether an enemy-scoped action connected.
type Outcome string

const (
	OutcomeHit  Outcome = "hit"
	OutcomeMiss Outcome = "miss"
)

// Event is one write-once entry of a session's log.
type Event struct {
	ID          string      `json:"id"`
	Seq         int64       `json:"seq"`
	Timestamp   time.Time   `json:"timestamp"`
	Round       int         `json:"round"`
	Type        EventType   `json:"type"`
	Actor       string      `json:"actor"`
	Target      string      `json:"target,omitempty"`
	Action      action.Type `json:"action,omitempty"`
	Outcome     Outcome     `json:"outcome,omitempty"`
	Damage      int         `json:"damage,omitempty"`
	Description string      `json:"description"`
}

// EventLog is a bounded, strictly ordered, append-only log.
// When full, the oldest entry is evicted. Not safe for concurrent use.
type EventLog struct {
	cap    int
	seq    int64
	events []Event
}

// NewEventLog creates an empty log holding at most capacity events.
//
// Precondition: capacity > 0.
func NewEventLog(capacity int) *EventLog {
	return &EventLog{cap: capacity, events: make([]Event, 0, min(capacity, 64))}
}

// Append stamps e with a fresh ID and the next sequence number and appends it.
//
// Postcondition: Len() <= capacity; the returned Event's Seq exceeds every earlier Seq.
func (l *EventLog) Append(e Event) Event {
	l.seq++
	e.Seq = l.seq
	e.ID = uuid.NewString()
	if len(l.events) == l.cap {
		copy(l.events, l.events[1:])
		l.events = l.events[:l.cap-1]
	}
	l.events = append(l.events, e)
	return e
}

// Len returns the number of retained events.
func (l *EventLog) Len() int { return len(l.events) }

// Events returns a copy of the retained events, oldest first.
func (l *EventLog) Events() []Event {
	return append([]Event(nil), l.events...)
}

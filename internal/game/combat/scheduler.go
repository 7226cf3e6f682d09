package combat

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Token identifies one scheduled callback.
type Token uint64

// Scheduler runs a callback once after a delay unless cancelled.
type Scheduler interface {
	// Schedule arranges for fn to run once after d.
	Schedule(d time.Duration, fn func()) Token
	// Cancel prevents the callback for t from running if it has not started.
	// Cancelling an unknown or already fired token is a no-op.
	Cancel(t Token)
}

// TimerScheduler schedules callbacks on a clockwork.Clock. Callbacks run on
// the clock's timer goroutine. Safe for concurrent use.
type TimerScheduler struct {
	clock clockwork.Clock

	mu     sync.Mutex
	next   Token
	timers map[Token]clockwork.Timer
}

// NewTimerScheduler creates a scheduler backed by clock; nil means the real clock.
func NewTimerScheduler(clock clockwork.Clock) *TimerScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TimerScheduler{clock: clock, timers: make(map[Token]clockwork.Timer)}
}

// Schedule implements Scheduler.
//
// Precondition: fn must not be nil.
func (s *TimerScheduler) Schedule(d time.Duration, fn func()) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	tok := s.next
	s.timers[tok] = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[tok]
		delete(s.timers, tok)
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	return tok
}

// Cancel implements Scheduler.
func (s *TimerScheduler) Cancel(t Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tm, ok := s.timers[t]; ok {
		tm.Stop()
		delete(s.timers, t)
	}
}

// Pending returns the number of callbacks that have neither fired nor been cancelled.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ManualScheduler holds callbacks until Fire is called. Intended for
// deterministic tests. Safe for concurrent use.
type ManualScheduler struct {
	mu      sync.Mutex
	next    Token
	pending map[Token]manualEntry
	order   []Token
}

type manualEntry struct {
	delay time.Duration
	fn    func()
}

// NewManualScheduler creates an empty ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[Token]manualEntry)}
}

// Schedule implements Scheduler.
func (s *ManualScheduler) Schedule(d time.Duration, fn func()) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.pending[s.next] = manualEntry{delay: d, fn: fn}
	s.order = append(s.order, s.next)
	return s.next
}

// Cancel implements Scheduler.
func (s *ManualScheduler) Cancel(t Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, t)
}

// Pending returns the number of callbacks waiting to fire.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// LastDelay returns the delay of the most recently scheduled pending callback.
func (s *ManualScheduler) LastDelay() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		if e, ok := s.pending[s.order[i]]; ok {
			return e.delay, true
		}
	}
	return 0, false
}

// Fire synchronously runs every callback pending at call time, in scheduling
// order, and returns how many ran. Callbacks scheduled while firing wait for
// the next Fire.
func (s *ManualScheduler) Fire() int {
	s.mu.Lock()
	var fns []func()
	for _, tok := range s.order {
		if e, ok := s.pending[tok]; ok {
			fns = append(fns, e.fn)
			delete(s.pending, tok)
		}
	}
	s.order = nil
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

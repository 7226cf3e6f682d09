package combat_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/fieldops/internal/game/combat"
)

func TestManualScheduler_FireAndCancel(t *testing.T) {
	s := combat.NewManualScheduler()
	var ran []string
	s.Schedule(time.Second, func() { ran = append(ran, "a") })
	tok := s.Schedule(2*time.Second, func() { ran = append(ran, "b") })
	s.Schedule(3*time.Second, func() { ran = append(ran, "c") })
	s.Cancel(tok)
	s.Cancel(tok)

	assert.Equal(t, 2, s.Pending())
	assert.Equal(t, 2, s.Fire())
	assert.Equal(t, []string{"a", "c"}, ran)
	assert.Zero(t, s.Pending())
	assert.Zero(t, s.Fire())
}

func TestManualScheduler_RescheduleDuringFireWaits(t *testing.T) {
	s := combat.NewManualScheduler()
	count := 0
	var tick func()
	tick = func() {
		count++
		s.Schedule(time.Second, tick)
	}
	s.Schedule(time.Second, tick)

	s.Fire()
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, s.Pending())
	d, ok := s.LastDelay()
	require.True(t, ok)
	assert.Equal(t, time.Second, d)
}

func TestTimerScheduler_FiresOnClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := combat.NewTimerScheduler(clock)
	done := make(chan struct{})
	s.Schedule(time.Second, func() { close(done) })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback did not fire")
	}
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTimerScheduler_CancelPreventsCallback(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := combat.NewTimerScheduler(clock)
	fired := make(chan struct{}, 1)
	tok := s.Schedule(time.Second, func() { fired <- struct{}{} })
	s.Cancel(tok)
	s.Cancel(tok)
	assert.Zero(t, s.Pending())

	clock.Advance(2 * time.Second)
	select {
	case <-fired:
		t.Fatal("cancelled callback fired")
	case <-time.After(50 * time.Millisecond):
	}
}

package ephemeral

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dm-service/internal/models"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped atomic.Bool
}

func (t *fakeTimer) Stop() bool { return !t.stopped.Swap(true) }

func (t *fakeTimer) Fire() { t.f() }

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[len(c.timers)-1]
}

type consumeLog struct {
	mu       sync.Mutex
	triggers []Trigger
}

func (l *consumeLog) record(_ Session, trigger Trigger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.triggers = append(l.triggers, trigger)
}

func (l *consumeLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.triggers)
}

func newTestController(clock *fakeClock, log *consumeLog) *Controller {
	return NewController(Options{MaxDwell: 10 * time.Second, AfterFunc: clock.AfterFunc, Now: clock.Now}, log.record)
}

func TestViewOnceCloseConsumesOnceAndBlocksReopen(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	log := &consumeLog{}
	c := newTestController(clock, log)
	view := View{Mode: models.ViewOnce, ExpiresAt: clock.now.Add(time.Hour)}

	s, err := c.Start("m1", "bob", view)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, s.Remaining(clock.now))
	assert.Equal(t, 10*time.Second, clock.last().d)

	assert.True(t, c.Close("m1", "bob"))
	assert.False(t, c.Close("m1", "bob"))
	assert.True(t, clock.last().stopped.Load(), "close must cancel the dwell timer")

	// the cancelled timer firing late must be a no-op
	clock.last().Fire()
	assert.Equal(t, []Trigger{TriggerClose}, log.triggers)

	_, err = c.Start("m1", "bob", view)
	assert.ErrorIs(t, err, ErrConsumed)
}

func TestViewOnceDwellCapConsumes(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	log := &consumeLog{}
	c := newTestController(clock, log)

	_, err := c.Start("m1", "bob", View{Mode: models.ViewOnce, ExpiresAt: clock.now.Add(time.Hour)})
	require.NoError(t, err)

	clock.last().Fire()
	assert.Equal(t, []Trigger{TriggerDwell}, log.triggers)
	_, viewing := c.Viewing("m1", "bob")
	assert.False(t, viewing)
}

func TestTimedCountdownConsumesAndAllowsReopen(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	log := &consumeLog{}
	c := newTestController(clock, log)
	view := View{Mode: models.Timed, Duration: 5 * time.Second, ExpiresAt: clock.now.Add(time.Hour)}

	_, err := c.Start("m1", "bob", view)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, clock.last().d)

	clock.last().Fire()
	assert.Equal(t, []Trigger{TriggerTimer}, log.triggers)

	_, err = c.Start("m1", "bob", view)
	assert.NoError(t, err, "timed snaps are re-openable until expiry")
}

func TestCloseAndTimerRaceFireOnce(t *testing.T) {
	for i := 0; i < 200; i++ {
		clock := &fakeClock{now: time.Now()}
		log := &consumeLog{}
		c := newTestController(clock, log)
		_, err := c.Start("m1", "bob", View{Mode: models.Timed, Duration: 5 * time.Second, ExpiresAt: clock.now.Add(time.Hour)})
		require.NoError(t, err)

		timer := clock.last()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); c.Close("m1", "bob") }()
		go func() { defer wg.Done(); timer.Fire() }()
		wg.Wait()

		require.Equal(t, 1, log.count())
	}
}

func TestStartWhileViewingReturnsSameSession(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := newTestController(clock, &consumeLog{})
	view := View{Mode: models.ViewOnce, ExpiresAt: clock.now.Add(time.Hour)}

	first, err := c.Start("m1", "bob", view)
	require.NoError(t, err)
	second, err := c.Start("m1", "bob", view)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, clock.timers, 1)
}

func TestExpiredSnapCannotStart(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := newTestController(clock, &consumeLog{})
	_, err := c.Start("m1", "bob", View{Mode: models.Timed, Duration: time.Second, ExpiresAt: clock.now})
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCountdownCappedByExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	log := &consumeLog{}
	c := newTestController(clock, log)
	_, err := c.Start("m1", "bob", View{Mode: models.Timed, Duration: time.Minute, ExpiresAt: clock.now.Add(2 * time.Second)})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, clock.last().d)

	clock.last().Fire()
	assert.Equal(t, []Trigger{TriggerExpiry}, log.triggers)
}

func TestShutdownCancelsTimersWithoutConsuming(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	log := &consumeLog{}
	c := newTestController(clock, log)
	_, _ = c.Start("m1", "bob", View{Mode: models.Timed, Duration: time.Second, ExpiresAt: clock.now.Add(time.Hour)})

	c.Shutdown()
	assert.True(t, clock.last().stopped.Load())
	assert.Zero(t, log.count())
}

func TestRealTimerAutoConsumes(t *testing.T) {
	done := make(chan Trigger, 1)
	c := NewController(Options{}, func(_ Session, trigger Trigger) { done <- trigger })
	_, err := c.Start("m1", "bob", View{Mode: models.Timed, Duration: 20 * time.Millisecond, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	select {
	case trigger := <-done:
		assert.Equal(t, TriggerTimer, trigger)
	case <-time.After(2 * time.Second):
		t.Fatal("timed snap was not consumed")
	}
}

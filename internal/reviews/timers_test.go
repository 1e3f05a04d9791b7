package reviews

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func TestArenaStopWithoutStartIsNoOp(t *testing.T) {
	arena := NewArena()
	if _, ok := arena.Stop("item-1"); ok {
		t.Fatalf("expected stop without start to report no timer")
	}
}

func TestArenaStartStopWholeSeconds(t *testing.T) {
	clock := newFakeClock()
	arena := NewArenaAt(clock.now)

	arena.Start("item-1")
	clock.advance(90*time.Second + 700*time.Millisecond)

	seconds, ok := arena.Stop("item-1")
	if !ok {
		t.Fatalf("expected active timer")
	}
	if seconds != 90 {
		t.Fatalf("expected 90 whole seconds, got %d", seconds)
	}
	if arena.Active("item-1") {
		t.Fatalf("expected timer evicted after stop")
	}
}

func TestArenaStartOverwritesSilently(t *testing.T) {
	clock := newFakeClock()
	arena := NewArenaAt(clock.now)

	arena.Start("item-1")
	clock.advance(10 * time.Minute)
	arena.Start("item-1")
	clock.advance(30 * time.Second)

	seconds, ok := arena.Stop("item-1")
	if !ok || seconds != 30 {
		t.Fatalf("expected restart to win, got %d ok=%v", seconds, ok)
	}
}

func TestArenaSweepEvictsOldTimers(t *testing.T) {
	clock := newFakeClock()
	arena := NewArenaAt(clock.now)

	arena.Start("stale")
	clock.advance(9 * time.Hour)
	arena.Start("fresh")

	dropped := arena.Sweep(8 * time.Hour)
	if dropped != 1 {
		t.Fatalf("expected 1 dropped timer, got %d", dropped)
	}
	if arena.Active("stale") {
		t.Fatalf("expected stale timer evicted")
	}
	if !arena.Active("fresh") {
		t.Fatalf("expected fresh timer kept")
	}
}

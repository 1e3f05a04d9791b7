package reviews

import (
	"sync"
	"time"
)

// Arena tracks active review timers. Entries live only in memory; a process
// restart drops them, and abandoned entries are reclaimed by Sweep.
type Arena struct {
	mu     sync.Mutex
	starts map[string]time.Time
	now    func() time.Time
}

// NewArena constructs an empty timer arena.
func NewArena() *Arena {
	return &Arena{
		starts: make(map[string]time.Time),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewArenaAt constructs an arena with an injected clock.
func NewArenaAt(now func() time.Time) *Arena {
	a := NewArena()
	if now != nil {
		a.now = now
	}
	return a
}

// Start records the current time against an item, silently overwriting any
// prior unstopped timer.
func (a *Arena) Start(itemID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.starts[itemID] = a.now()
}

// Stop removes the timer for an item and returns the elapsed whole seconds.
// ok is false when no timer was active.
func (a *Arena) Stop(itemID string) (seconds int64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	start, exists := a.starts[itemID]
	if !exists {
		return 0, false
	}
	delete(a.starts, itemID)
	elapsed := a.now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	return int64(elapsed / time.Second), true
}

// Active reports whether an item has a running timer.
func (a *Arena) Active(itemID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.starts[itemID]
	return ok
}

// Sweep evicts timers older than maxAge and returns how many were dropped.
func (a *Arena) Sweep(maxAge time.Duration) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	cutoff := a.now().Add(-maxAge)
	dropped := 0
	for id, start := range a.starts {
		if start.Before(cutoff) {
			delete(a.starts, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of active timers.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.starts)
}

// Package cooldown throttles command use per scope (a channel) and command.
package cooldown

import (
	"sync"
	"time"
)

// Default is applied to commands that do not set their own cooldown.
const Default = 15 * time.Second

type key struct{ scope, command string }

// use is one accepted invocation and the window it opened.
type use struct {
	at     time.Time
	window time.Duration
}

// Tracker records the last accepted use of each (scope, command) pair.
// It is safe for concurrent use; Allow is an atomic check-and-set.
type Tracker struct {
	mu   sync.Mutex
	last map[key]use
	now  func() time.Time
}

// New returns a Tracker using the wall clock.
func New() *Tracker { return NewWithClock(time.Now) }

// NewWithClock returns a Tracker reading time from now.
func NewWithClock(now func() time.Time) *Tracker {
	return &Tracker{last: make(map[key]use), now: now}
}

// Allow reports whether command may run in scope. On success the use is
// recorded; a rejected call leaves the previous timestamp untouched.
// A window of zero or less always passes.
func (t *Tracker) Allow(scope, command string, window time.Duration) bool {
	if window <= 0 {
		return true
	}
	k := key{scope, command}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if last, ok := t.last[k]; ok && now.Sub(last.at) < window {
		return false
	}
	t.last[k] = use{at: now, window: window}
	return true
}

// Remaining returns how long command stays throttled in scope.
func (t *Tracker) Remaining(scope, command string, window time.Duration) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[key{scope, command}]
	if !ok {
		return 0
	}
	if left := window - t.now().Sub(last.at); left > 0 {
		return left
	}
	return 0
}

// Reset forgets every use recorded in scope.
func (t *Tracker) Reset(scope string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.last {
		if k.scope == scope {
			delete(t.last, k)
		}
	}
}

// Prune drops entries whose window has run out, so long running bots do
// not grow the table without bound. Live cooldowns are kept however long
// their window is.
func (t *Tracker) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	n := 0
	for k, last := range t.last {
		if now.Sub(last.at) >= last.window {
			delete(t.last, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked pairs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

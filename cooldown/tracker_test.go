package cooldown

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestAllowWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tr := NewWithClock(clock.Now)

	if !tr.Allow("foo", "title", 5*time.Second) {
		t.Fatal("first use should pass")
	}
	clock.Advance(4 * time.Second)
	if tr.Allow("foo", "title", 5*time.Second) {
		t.Fatal("use within window should be rejected")
	}
	// rejection does not move the window
	clock.Advance(time.Second)
	if !tr.Allow("foo", "title", 5*time.Second) {
		t.Fatal("use after window should pass")
	}
	if got := tr.Remaining("foo", "title", 5*time.Second); got != 5*time.Second {
		t.Errorf("Remaining = %v, want 5s", got)
	}
}

func TestAllowScopes(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	tr := NewWithClock(clock.Now)

	tests := []struct {
		scope, command string
		want           bool
	}{
		{"foo", "title", true},
		{"foo", "title", false},
		{"bar", "title", true},
		{"foo", "game", true},
	}
	for _, tt := range tests {
		if got := tr.Allow(tt.scope, tt.command, Default); got != tt.want {
			t.Errorf("Allow(%q, %q) = %v, want %v", tt.scope, tt.command, got, tt.want)
		}
	}
	if tr.Len() != 3 {
		t.Errorf("Len = %d, want 3", tr.Len())
	}
}

func TestZeroWindowAlwaysPasses(t *testing.T) {
	tr := New()
	for i := 0; i < 3; i++ {
		if !tr.Allow("foo", "ping", 0) {
			t.Fatalf("call %d rejected", i)
		}
	}
	if tr.Len() != 0 {
		t.Errorf("zero window should not be recorded")
	}
}

func TestAllowIsAtomic(t *testing.T) {
	tr := New()
	var passed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Allow("foo", "title", time.Minute) {
				passed.Add(1)
			}
		}()
	}
	wg.Wait()
	if passed.Load() != 1 {
		t.Errorf("%d concurrent calls passed, want 1", passed.Load())
	}
}

func TestResetAndPrune(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	tr := NewWithClock(clock.Now)
	tr.Allow("foo", "a", time.Second)
	tr.Allow("bar", "a", time.Second)

	tr.Reset("foo")
	if !tr.Allow("foo", "a", time.Second) {
		t.Error("reset scope should pass again")
	}

	clock.Advance(time.Hour)
	if n := tr.Prune(); n != 2 {
		t.Errorf("Prune removed %d, want 2", n)
	}
}

func TestPruneKeepsLongWindows(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	tr := NewWithClock(clock.Now)
	tr.Allow("foo", "short", time.Minute)
	tr.Allow("foo", "long", 3*time.Hour)

	clock.Advance(2 * time.Hour)
	if n := tr.Prune(); n != 1 {
		t.Fatalf("Prune removed %d, want 1", n)
	}
	if tr.Allow("foo", "long", 3*time.Hour) {
		t.Error("long cooldown was dropped while still active")
	}
	if got := tr.Remaining("foo", "long", 3*time.Hour); got != time.Hour {
		t.Errorf("Remaining = %v, want 1h", got)
	}
}

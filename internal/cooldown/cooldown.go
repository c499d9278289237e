// Package cooldown tracks per-key action timestamps so a strategy does not
// re-enter the same asset within its configured window.
package cooldown

import (
	"sync"
	"time"
)

// Tracker answers "how long until this key is eligible again."
// Owned by one instance; safe for concurrent use within it.
type Tracker struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	now    func() time.Time
}

// NewTracker creates a tracker with the given cooldown window.
// A zero window disables cooldowns entirely.
func NewTracker(window time.Duration) *Tracker {
	return &Tracker{
		window: window,
		last:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Hit records an action for key if it is eligible and returns 0.
// If key is still cooling down, returns the remaining duration without
// updating the timestamp.
func (t *Tracker) Hit(key string) time.Duration {
	if t.window <= 0 {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[key]; ok {
		if remaining := t.window - now.Sub(last); remaining > 0 {
			return remaining
		}
	}
	t.last[key] = now
	return 0
}

// Remaining returns the time left in key's cooldown, or 0 if eligible.
// Does not record an action.
func (t *Tracker) Remaining(key string) time.Duration {
	if t.window <= 0 {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.last[key]
	if !ok {
		return 0
	}
	if remaining := t.window - t.now().Sub(last); remaining > 0 {
		return remaining
	}
	return 0
}

// Reset clears key's cooldown, making it immediately eligible.
func (t *Tracker) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, key)
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

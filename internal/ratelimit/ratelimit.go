// Package ratelimit implements a fixed-window request limiter keyed by
// client identifier. It is an owned, injectable component rather than
// process-global state so handlers can share one instance and tests can
// drive the clock.
package ratelimit

import (
	"sync"
	"time"
)

type entry struct {
	count     int
	resetTime time.Time
}

// Limiter allows up to max requests per identifier within each fixed window.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string]*entry

	now func() time.Time
}

// New creates a limiter with the given window and per-window request cap.
func New(window time.Duration, max int) *Limiter {
	return &Limiter{
		window:  window,
		max:     max,
		entries: map[string]*entry{},
		now:     time.Now,
	}
}

// Allow reports whether the identified client may proceed, counting the
// request when it may. Expired entries are swept on each call to bound the
// map's size.
func (l *Limiter) Allow(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if e.resetTime.Before(now) {
			delete(l.entries, key)
		}
	}

	e, ok := l.entries[identifier]
	if !ok || e.resetTime.Before(now) {
		e = &entry{resetTime: now.Add(l.window)}
		l.entries[identifier] = e
	}

	if e.count >= l.max {
		return false
	}
	e.count++
	return true
}

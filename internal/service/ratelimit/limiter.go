package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most capacity requests per key in any sliding window.
type Limiter struct {
	mu       sync.Mutex
	m        map[string][]time.Time // admitted request times, oldest first
	capacity int
	window   time.Duration
	now      func() time.Time
	sweeps   int
}

// New allows capacity requests per window for every key.
func New(capacity int, window time.Duration) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		m:        make(map[string][]time.Time),
		capacity: capacity,
		window:   window,
		now:      time.Now,
	}
}

// Allow records a request for key and reports whether it was admitted.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.Reserve(key)
	return ok
}

// Reserve is Allow that also returns how long until the oldest admitted request
// leaves the window when denied.
func (l *Limiter) Reserve(key string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeSweep(now)
	hits := l.prune(l.m[key], now)
	if len(hits) < l.capacity {
		l.m[key] = append(hits, now)
		return true, 0
	}
	l.m[key] = hits
	return false, hits[0].Add(l.window).Sub(now)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// prune drops times that are a full window old or older.
func (l *Limiter) prune(hits []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// maybeSweep drops keys with nothing left in the window, every 256 calls.
func (l *Limiter) maybeSweep(now time.Time) {
	l.sweeps++
	if l.sweeps%256 != 0 {
		return
	}
	for k, hits := range l.m {
		if len(l.prune(hits, now)) == 0 {
			delete(l.m, k)
		}
	}
}

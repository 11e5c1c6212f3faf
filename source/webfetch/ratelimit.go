package webfetch

import (
	"sync"
	"time"
)

const (
	// DefaultRateLimit is the number of accepted requests per host per window.
	DefaultRateLimit = 10

	// DefaultRateWindow is the fixed window length.
	DefaultRateWindow = time.Minute
)

type rateLimitState struct {
	count         int
	windowResetAt time.Time
}

// RateLimiter enforces a fixed-window request budget per hostname. State is
// process-local.
type RateLimiter struct {
	mu     sync.Mutex
	states map[string]*rateLimitState
	limit  int
	window time.Duration
	clock  Clock
}

// NewRateLimiter creates a limiter with DefaultRateLimit per DefaultRateWindow.
func NewRateLimiter(clock Clock) *RateLimiter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RateLimiter{
		states: make(map[string]*rateLimitState),
		limit:  DefaultRateLimit,
		window: DefaultRateWindow,
		clock:  clock,
	}
}

// Check returns a *RateLimitError if host has used its budget for the
// current window. Check never consumes budget; call Record after a
// successful fetch.
func (l *RateLimiter) Check(host string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	state, ok := l.states[host]
	if !ok {
		l.states[host] = &rateLimitState{windowResetAt: now.Add(l.window)}
		return nil
	}
	if !now.Before(state.windowResetAt) {
		state.count = 0
		state.windowResetAt = now.Add(l.window)
		return nil
	}
	if state.count < l.limit {
		return nil
	}
	return &RateLimitError{Host: host, Limit: l.limit, ResetAt: state.windowResetAt}
}

// Record counts one accepted request against host.
func (l *RateLimiter) Record(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	state, ok := l.states[host]
	if !ok || !now.Before(state.windowResetAt) {
		l.states[host] = &rateLimitState{count: 1, windowResetAt: now.Add(l.window)}
		return
	}
	state.count++
}

// Prune drops hosts whose window has expired. A pruned host starts a fresh
// window on its next Check, exactly as an expired one would.
func (l *RateLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	removed := 0
	for host, state := range l.states {
		if !now.Before(state.windowResetAt) {
			delete(l.states, host)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked hosts.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}

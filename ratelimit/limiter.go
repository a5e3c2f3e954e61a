// Package ratelimit implements the per-address fixed window counters guarding the verification
// and key generation endpoints. Counters are process local.
package ratelimit

import (
	"sync"
	"time"
)

// Actions limited independently for the same address.
const (
	ActionInitiateVerification = "initiate-verification"
	ActionGenerate             = "generate"
)

// Windows past this many tracked entries trigger a sweep of the stale ones.
const sweepThreshold = 10000

type window struct {
	start time.Time
	count int
}

type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	windows map[string]*window
	nowFunc func() time.Time
}

type Option func(*Limiter)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(now func() time.Time) Option {
	return func(l *Limiter) {
		l.nowFunc = now
	}
}

func New(windowSize time.Duration, options ...Option) *Limiter {
	l := &Limiter{
		window:  windowSize,
		windows: make(map[string]*window),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Allow counts one request by address for action and reports whether it stays within max
// requests in the current window. The first request after a window elapses opens a new one.
func (l *Limiter) Allow(address, action string, max int) bool {
	now := l.nowFunc()
	key := address + ":" + action

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		if !ok && len(l.windows) >= sweepThreshold {
			l.sweep(now)
		}
		l.windows[key] = &window{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= max
}

// sweep drops elapsed windows. Caller holds l.mu.
func (l *Limiter) sweep(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
		}
	}
}

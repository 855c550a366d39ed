// Package ratelimit bounds calls to external dependencies over trailing
// time windows. Each dependency has an independent window, so exhausting
// one quota never stalls calls to the others.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config bounds one dependency to MaxCalls per trailing Window.
type Config struct {
	MaxCalls int
	Window   time.Duration
}

// Limiter tracks recent call timestamps per dependency and decides whether
// a call may proceed immediately or must wait. The check-and-record step is
// atomic per limiter, safe for concurrent job executions.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	// now is injectable for tests.
	now func() time.Time
}

type window struct {
	cfg    Config
	stamps []time.Time
}

// New creates a limiter with the given per-dependency windows.
// Dependencies without a configured window are never limited.
func New(cfgs map[string]Config) *Limiter {
	windows := make(map[string]*window, len(cfgs))
	for dep, cfg := range cfgs {
		windows[dep] = &window{cfg: cfg}
	}
	return &Limiter{
		windows: windows,
		now:     time.Now,
	}
}

// Allow checks the dependency's window. If the call may proceed it is
// recorded and Allow returns (true, zero time). Otherwise it returns
// (false, deferUntil): the instant the oldest in-window call expires.
func (l *Limiter) Allow(dep string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[dep]
	if !ok {
		return true, time.Time{}
	}

	now := l.now()
	cutoff := now.Add(-w.cfg.Window)

	// Expire timestamps outside the trailing window. Expiry is computed at
	// query time; there is no background sweep.
	keep := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	w.stamps = keep

	if len(w.stamps) < w.cfg.MaxCalls {
		w.stamps = append(w.stamps, now)
		return true, time.Time{}
	}

	return false, w.stamps[0].Add(w.cfg.Window)
}

// Acquire blocks the calling goroutine until the dependency's window admits
// a call, parking on a timer between checks rather than busy-waiting. The
// wait is cooperative: only this job's goroutine suspends.
func (l *Limiter) Acquire(ctx context.Context, dep string) error {
	for {
		ok, deferUntil := l.Allow(dep)
		if ok {
			return nil
		}

		wait := deferUntil.Sub(l.now())
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

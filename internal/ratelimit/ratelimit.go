// Package ratelimit enforces per-service call budgets over fixed time windows.
// It protects the expensive upstream security providers, not the inbound HTTP
// surface (the server uses a token bucket for that).
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// WindowLength is the fixed-window duration shared by all services.
const WindowLength = time.Minute

// Result is the outcome of a limit check.
type Result struct {
	Allowed           bool `json:"allowed"`
	Remaining         int  `json:"remaining"`
	RetryAfterSeconds int  `json:"retryAfterSeconds,omitempty"`
}

// ServiceStats are cumulative per-service counters kept for observability.
// They never influence limiting decisions.
type ServiceStats struct {
	Total    int64 `json:"total"`
	Rejected int64 `json:"rejected"`
	Queued   int64 `json:"queued"`
}

// window is the live fixed-window state for one service.
type window struct {
	count   int
	resetAt time.Time
}

// Limiter tracks one fixed window per service. All window state is guarded
// by a single mutex; callers may race freely.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	stats   map[string]*ServiceStats

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		stats:   make(map[string]*ServiceStats),
		now:     time.Now,
	}
}

// RateLimitedError is returned when a caller wants hard failure on an
// exhausted budget, or when WaitForSlot would exceed its timeout.
type RateLimitedError struct {
	Service           string
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %ds", e.Service, e.RetryAfterSeconds)
}

// Check consumes one slot from the service's window if the budget allows.
// It never returns an error; an exhausted budget is reported as a
// disallowed Result with the seconds until the window resets.
func (l *Limiter) Check(service string, maxPerMinute int) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	st := l.statsLocked(service)
	st.Total++

	w, ok := l.windows[service]
	if !ok || !now.Before(w.resetAt) {
		// First check, or the previous window has elapsed: reset and count
		// the current call.
		l.windows[service] = &window{count: 1, resetAt: now.Add(WindowLength)}
		return Result{Allowed: true, Remaining: maxPerMinute - 1}
	}

	if w.count < maxPerMinute {
		w.count++
		return Result{Allowed: true, Remaining: maxPerMinute - w.count}
	}

	st.Rejected++
	retryAfter := int(ceilSeconds(w.resetAt.Sub(now)))
	logrus.WithFields(logrus.Fields{
		"service":     service,
		"retry_after": retryAfter,
	}).Debug("Upstream rate limit exhausted")
	return Result{Allowed: false, Remaining: 0, RetryAfterSeconds: retryAfter}
}

// WaitForSlot blocks until a slot is available, the context is cancelled, or
// the wait would exceed timeout. When the wait cannot complete in time it
// fails immediately with a RateLimitedError carrying the would-be wait.
func (l *Limiter) WaitForSlot(ctx context.Context, service string, maxPerMinute int, timeout time.Duration) error {
	for {
		res := l.Check(service, maxPerMinute)
		if res.Allowed {
			return nil
		}

		wait := time.Duration(res.RetryAfterSeconds) * time.Second
		if wait > timeout {
			return &RateLimitedError{Service: service, RetryAfterSeconds: res.RetryAfterSeconds}
		}

		l.mu.Lock()
		l.statsLocked(service).Queued++
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		timeout -= wait
	}
}

// Stats returns a copy of the cumulative counters for all services.
func (l *Limiter) Stats() map[string]ServiceStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]ServiceStats, len(l.stats))
	for svc, st := range l.stats {
		out[svc] = *st
	}
	return out
}

func (l *Limiter) statsLocked(service string) *ServiceStats {
	st, ok := l.stats[service]
	if !ok {
		st = &ServiceStats{}
		l.stats[service] = st
	}
	return st
}

// ceilSeconds rounds a duration up to whole seconds, matching the
// retry-after contract (a 100ms remainder still means "retry in 1s").
func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	s := int64(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}

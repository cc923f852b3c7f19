package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New()
	l.now = clock.Now
	return l, clock
}

func TestCheck_WindowBoundary(t *testing.T) {
	l, clock := newTestLimiter()

	// First three calls in a window are allowed.
	for i := 0; i < 3; i++ {
		res := l.Check("goplus", 3)
		assert.True(t, res.Allowed, "call %d should be allowed", i+1)
		assert.Equal(t, 2-i, res.Remaining)
	}

	// The fourth call is rejected with a positive retry-after.
	res := l.Check("goplus", 3)
	assert.False(t, res.Allowed, "fourth call in the window must be rejected")
	assert.Greater(t, res.RetryAfterSeconds, 0)

	// After the window elapses the next call resets and is allowed.
	clock.Advance(61 * time.Second)
	res = l.Check("goplus", 3)
	assert.True(t, res.Allowed, "call after window reset should be allowed")
	assert.Equal(t, 2, res.Remaining, "reset window counts the current call")
}

func TestCheck_ServicesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 3; i++ {
		require.True(t, l.Check("goplus", 3).Allowed)
	}
	assert.False(t, l.Check("goplus", 3).Allowed)
	assert.True(t, l.Check("honeypot-is", 3).Allowed, "a second service has its own window")
}

func TestCheck_RetryAfterRoundsUp(t *testing.T) {
	l, clock := newTestLimiter()

	require.True(t, l.Check("goplus", 1).Allowed)
	clock.Advance(59*time.Second + 500*time.Millisecond)

	res := l.Check("goplus", 1)
	require.False(t, res.Allowed)
	assert.Equal(t, 1, res.RetryAfterSeconds, "partial seconds round up")
}

func TestCheck_Concurrent(t *testing.T) {
	l, _ := newTestLimiter()

	const callers = 50
	const budget = 10

	var wg sync.WaitGroup
	allowed := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Check("goplus", budget).Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	assert.Equal(t, budget, count, "exactly the budget should be admitted under contention")
}

func TestWaitForSlot_TimeoutExceeded(t *testing.T) {
	l, _ := newTestLimiter()

	require.True(t, l.Check("goplus", 1).Allowed)

	err := l.WaitForSlot(context.Background(), "goplus", 1, time.Second)
	require.Error(t, err, "a wait longer than the timeout must fail immediately")

	var rle *RateLimitedError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "goplus", rle.Service)
	assert.Greater(t, rle.RetryAfterSeconds, 0)
}

func TestWaitForSlot_ImmediateWhenAvailable(t *testing.T) {
	l, _ := newTestLimiter()
	assert.NoError(t, l.WaitForSlot(context.Background(), "goplus", 5, time.Second))
}

func TestStats(t *testing.T) {
	l, _ := newTestLimiter()

	l.Check("goplus", 1)
	l.Check("goplus", 1)
	l.Check("goplus", 1)

	stats := l.Stats()
	require.Contains(t, stats, "goplus")
	assert.Equal(t, int64(3), stats["goplus"].Total)
	assert.Equal(t, int64(2), stats["goplus"].Rejected)
}

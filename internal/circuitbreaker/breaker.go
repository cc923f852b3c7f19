// Package circuitbreaker protects the upstream security provider from being
// hammered while it is failing. Repeated consecutive failures open the
// circuit; after a cooldown a single probe is let through.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State represents the current state of the circuit breaker
type State int

// Circuit breaker states
const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Tripped, calls rejected
	StateHalfOpen              // Cooldown elapsed, probing for recovery
)

// String renders the state for status endpoints and logs.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Allow while the circuit is open.
var ErrOpen = errors.New("circuit breaker open: upstream protection engaged")

// CircuitBreaker counts consecutive upstream failures and rejects calls once
// the failure threshold is crossed.
type CircuitBreaker struct {
	mu sync.Mutex

	state        State
	failures     int
	successCount int
	lastTrip     time.Time

	failureThreshold int
	successThreshold int
	cooldown         time.Duration

	onTripCallback func(reason string)
}

// New creates a breaker that trips after failureThreshold consecutive
// failures and stays open for the cooldown period.
func New(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		successThreshold: 3,
		cooldown:         cooldown,
	}
}

// WithSuccessThreshold sets the number of consecutive successes needed to
// close the circuit from half-open.
func (cb *CircuitBreaker) WithSuccessThreshold(threshold int) *CircuitBreaker {
	cb.successThreshold = threshold
	return cb
}

// WithTripCallback sets a callback invoked when the circuit trips.
func (cb *CircuitBreaker) WithTripCallback(callback func(reason string)) *CircuitBreaker {
	cb.onTripCallback = callback
	return cb
}

// Allow reports whether a call may proceed. While open, it returns ErrOpen
// until the cooldown elapses, at which point a half-open probe is permitted.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastTrip) < cb.cooldown {
			return ErrOpen
		}
		cb.state = StateHalfOpen
		cb.successCount = 0
		logrus.Info("Circuit breaker half-open: probing upstream recovery")
	}
	return nil
}

// RecordSuccess notes a successful upstream call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = StateClosed
			cb.successCount = 0
			logrus.Info("Circuit breaker closed: upstream recovered")
		}
	}
}

// RecordFailure notes a failed upstream call and trips the circuit when the
// threshold is reached. A failure during a half-open probe re-opens
// immediately.
func (cb *CircuitBreaker) RecordFailure(reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
		cb.trip(reason)
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forcibly resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successCount = 0
	logrus.Info("Circuit breaker manually reset to closed state")
}

func (cb *CircuitBreaker) trip(reason string) {
	cb.state = StateOpen
	cb.lastTrip = time.Now()
	cb.successCount = 0
	logrus.Warnf("Circuit breaker tripped: %s", reason)

	if cb.onTripCallback != nil {
		go cb.onTripCallback(reason)
	}
}

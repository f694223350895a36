package store

import (
	"sync"
	"time"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
)

// BreakerState represents the circuit breaker state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// Breaker is the fault-tolerance state machine guarding store calls. It is
// process-local and owned by a single ResilientStore instance, so separate
// stores (e.g. in tests) never interfere.
type Breaker struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time

	threshold  int
	resetAfter time.Duration
	now        func() time.Time
}

// NewBreaker creates a closed breaker that opens after threshold
// consecutive failures and allows a single probe once resetAfter has
// elapsed since the last failure.
func NewBreaker(threshold int, resetAfter time.Duration) *Breaker {
	return &Breaker{
		state:      BreakerClosed,
		threshold:  threshold,
		resetAfter: resetAfter,
		now:        time.Now,
	}
}

// Allow reports whether a call may proceed. When the breaker is open and
// the reset window has elapsed it transitions to half-open and admits
// exactly one probe; concurrent callers are rejected until the probe
// settles.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.lastFailure) < b.resetAfter {
			return &domain.CircuitOpenError{Since: b.lastFailure}
		}
		b.state = BreakerHalfOpen
		return nil
	case BreakerHalfOpen:
		// A probe is already in flight.
		return &domain.CircuitOpenError{Since: b.lastFailure}
	}
	return nil
}

// RecordSuccess resets the failure count and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = BreakerClosed
}

// RecordFailure counts a failed call. The breaker opens once the failure
// threshold is reached; a failure during a half-open probe reopens it
// immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = b.now()
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.state = BreakerOpen
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

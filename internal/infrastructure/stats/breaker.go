package stats

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("stats: circuit breaker is open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// breaker fails fast after maxFailures consecutive errors and lets a single
// probe through once resetTimeout has passed.
type breaker struct {
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	probing  bool
}

func newBreaker(maxFailures int, resetTimeout time.Duration) *breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &breaker{maxFailures: maxFailures, resetTimeout: resetTimeout, now: time.Now}
}

// call runs fn unless the circuit is open. Failures seen after ctx was
// canceled or expired belong to the caller and leave the counters alone.
func (b *breaker) call(ctx context.Context, fn func() error) error {
	b.mu.Lock()
	if b.state == stateOpen && b.now().Sub(b.openedAt) >= b.resetTimeout {
		b.state = stateHalfOpen
		b.probing = false
	}
	switch b.state {
	case stateOpen:
		b.mu.Unlock()
		return ErrCircuitOpen
	case stateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.probing = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil && ctx.Err() != nil {
		b.probing = false
		return err
	}
	if err != nil {
		b.failures++
		if b.state == stateHalfOpen || b.failures >= b.maxFailures {
			b.state = stateOpen
			b.openedAt = b.now()
		}
		b.probing = false
		return err
	}
	b.failures = 0
	b.state = stateClosed
	b.probing = false
	return nil
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

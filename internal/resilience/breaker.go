// Package resilience guards engine calls: a circuit breaker that also turns
// panics into failures, so a misbehaving engine degrades one session to
// empty results instead of crashing the process.
package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrPanic wraps a value recovered from a guarded call.
var ErrPanic = errors.New("panic in guarded call")

// State of a breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

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

// Breaker opens after maxFailures consecutive failures and rejects calls
// until timeout elapses; the next call then runs half-open and either
// closes the circuit or reopens it.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	now         func() time.Time // for testing

	onChange func(from, to State)
}

// NewBreaker creates a closed breaker. maxFailures below 1 is treated as 1.
func NewBreaker(maxFailures int, timeout time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &Breaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		now:         time.Now,
	}
}

// OnStateChange registers fn to be called (outside the lock) on every
// state transition.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// State returns the current state without advancing it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn unless the circuit is open. A panic inside fn is
// recovered and reported as an error wrapping ErrPanic; it counts as a
// failure.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}

	err := guard(fn)
	if err != nil {
		b.transition(b.onFailure)
		return err
	}
	b.transition(b.onSuccess)
	return nil
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}

func (b *Breaker) allow() bool {
	allowed := true
	b.transition(func() {
		if b.state == StateOpen {
			if b.now().Sub(b.openedAt) < b.timeout {
				allowed = false
				return
			}
			b.state = StateHalfOpen
		}
	})
	return allowed
}

// transition runs mutate under the lock and reports a state change.
func (b *Breaker) transition(mutate func()) {
	b.mu.Lock()
	from := b.state
	mutate()
	to, fn := b.state, b.onChange
	b.mu.Unlock()

	if fn != nil && from != to {
		fn(from, to)
	}
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess() {
	b.failures = 0
	b.state = StateClosed
}

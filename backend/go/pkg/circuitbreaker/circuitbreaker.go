package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where requests are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and requests are blocked.
	Open
	// HalfOpen is a state where trial requests are allowed to test the system's recovery.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

var (
	// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// CircuitBreaker is the interface for the circuit breaker pattern.
type CircuitBreaker interface {
	// Execute runs the given request if the circuit breaker is closed or half-open.
	Execute(req func() (interface{}, error)) (interface{}, error)
	// State returns the current state of the circuit breaker.
	State() State
}

// Option customises a breaker built by New.
type Option func(*breaker)

// WithFailurePredicate decides which errors count against the breaker.
// Errors for which counts returns false are passed through and treated as successes.
func WithFailurePredicate(counts func(error) bool) Option {
	return func(b *breaker) { b.counts = counts }
}

// WithStateChange registers a callback fired (outside the lock) whenever the state changes.
func WithStateChange(fn func(from, to State)) Option {
	return func(b *breaker) { b.onChange = fn }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *breaker) { b.now = now }
}

type breaker struct {
	failureThreshold     uint32        // Number of failures to trip the circuit.
	successThreshold     uint32        // Number of successes in HalfOpen state to close the circuit.
	timeout              time.Duration // Duration to wait in Open state before transitioning to HalfOpen.
	consecutiveSuccesses uint32
	consecutiveFailures  uint32
	openedAt             time.Time
	state                State

	counts   func(error) bool
	onChange func(from, to State)
	now      func() time.Time
	mutex    sync.Mutex
}

// New creates a new circuit breaker with the specified settings.
// failureThreshold: The number of consecutive failures required to open the circuit.
// successThreshold: The number of consecutive successes in the half-open state required to close the circuit.
// timeout: The duration the circuit remains open before transitioning to half-open.
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) CircuitBreaker {
	b := &breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		state:            Closed,
		counts:           func(err error) bool { return err != nil },
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.failureThreshold == 0 {
		b.failureThreshold = 1
	}
	if b.successThreshold == 0 {
		b.successThreshold = 1
	}
	return b
}

// State returns the current state of the circuit breaker.
func (b *breaker) State() State {
	b.mutex.Lock()
	from, to := b.refresh()
	state := b.state
	b.mutex.Unlock()
	b.notify(from, to)
	return state
}

// Execute wraps the execution of a function with the circuit breaker logic.
func (b *breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	b.mutex.Lock()
	from, to := b.refresh()
	open := b.state == Open
	b.mutex.Unlock()
	b.notify(from, to)

	if open {
		return nil, ErrCircuitOpen
	}

	res, err := req()
	if err != nil && b.counts(err) {
		b.record(false)
		return res, err
	}
	b.record(true)
	return res, err
}

// refresh moves Open to HalfOpen once the timeout elapsed. Caller holds the lock.
func (b *breaker) refresh() (State, State) {
	if b.state == Open && b.now().Sub(b.openedAt) > b.timeout {
		b.state = HalfOpen
		b.consecutiveSuccesses = 0
		return Open, HalfOpen
	}
	return b.state, b.state
}

func (b *breaker) record(success bool) {
	b.mutex.Lock()
	from := b.state
	switch {
	case success && b.state == HalfOpen:
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.successThreshold {
			b.reset()
		}
	case success:
		b.consecutiveFailures = 0
	case b.state == HalfOpen:
		b.trip()
	case b.state == Closed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold {
			b.trip()
		}
	}
	to := b.state
	b.mutex.Unlock()
	b.notify(from, to)
}

func (b *breaker) notify(from, to State) {
	if from != to && b.onChange != nil {
		b.onChange(from, to)
	}
}

// trip opens the circuit.
func (b *breaker) trip() {
	b.state = Open
	b.openedAt = b.now()
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
}

// reset closes the circuit and resets all counters.
func (b *breaker) reset() {
	b.state = Closed
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
}

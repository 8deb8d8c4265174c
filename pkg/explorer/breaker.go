package explorer

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// BreakerState represents the current state of the circuit breaker
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerSnapshot is a point-in-time view of the breaker for status endpoints
type BreakerSnapshot struct {
	State        string    `json:"state"`
	FailureCount int       `json:"failure_count"`
	NextAttempt  time.Time `json:"next_attempt_allowed_at"`
}

// CircuitBreaker protects a single failure-prone operation. One instance is
// shared process-wide per protected dependency, so one caller's failures trip
// protection for all callers.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	resetTimeout     time.Duration
	state            BreakerState
	failureCount     int
	nextAttempt      time.Time

	now func() time.Time
}

// NewCircuitBreaker creates a circuit breaker that opens after
// failureThreshold consecutive failures and allows a single trial call after
// resetTimeout has elapsed.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 60 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// Execute runs fn with circuit breaker protection. When the breaker is OPEN
// and the reset timeout has not elapsed, fn is never invoked and
// ErrCircuitOpen is returned. After the timeout, exactly one trial call is
// allowed through as HALF_OPEN.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if cb.now().Before(cb.nextAttempt) {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
	case StateHalfOpen:
		// A trial call is already in flight
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failureCount++
		if cb.state == StateHalfOpen || cb.failureCount >= cb.failureThreshold {
			cb.setState(StateOpen)
			cb.nextAttempt = cb.now().Add(cb.resetTimeout)
			log.Warnf("Circuit breaker OPEN after %d failures, next attempt allowed at %s",
				cb.failureCount, cb.nextAttempt.Format(time.RFC3339))
		}
		return err
	}

	cb.failureCount = 0
	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
	}
	return nil
}

func (cb *CircuitBreaker) setState(state BreakerState) {
	if cb.state != state {
		log.Infof("Circuit breaker state changed: %s -> %s", cb.state, state)
		cb.state = state
	}
}

// GetState returns a snapshot of the breaker for observability.
func (cb *CircuitBreaker) GetState() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerSnapshot{
		State:        cb.state.String(),
		FailureCount: cb.failureCount,
		NextAttempt:  cb.nextAttempt,
	}
}

package core

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState string

const (
	// CircuitBreakerStateClosed means calls reach the dependency
	CircuitBreakerStateClosed CircuitBreakerState = "closed"
	// CircuitBreakerStateOpen means calls are short-circuited
	CircuitBreakerStateOpen CircuitBreakerState = "open"
	// CircuitBreakerStateHalfOpen means a probe call is testing recovery
	CircuitBreakerStateHalfOpen CircuitBreakerState = "half_open"
)

// ErrCircuitBreakerOpen is returned by Allow while the dependency is skipped
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening
	MaxFailures uint32
	// Cooldown is how long the circuit stays open before a probe is let through
	Cooldown time.Duration
}

// Validate checks if the circuit breaker configuration is valid
func (c CircuitBreakerConfig) Validate() error {
	if c.MaxFailures == 0 {
		return errors.New("MaxFailures must be greater than 0")
	}
	if c.Cooldown <= 0 {
		return errors.New("Cooldown must be greater than 0")
	}
	return nil
}

// DefaultCircuitBreakerConfig opens after 5 failures and probes every 30s
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures: 5,
		Cooldown:    30 * time.Second,
	}
}

// CircuitBreaker stops calling a failing dependency for a cooldown period.
// One probe at a time is admitted once the cooldown elapses.
type CircuitBreaker struct {
	config   CircuitBreakerConfig
	now      func() time.Time
	mu       sync.Mutex
	state    CircuitBreakerState
	failures uint32
	openedAt time.Time
	probing  bool
}

// ErrInvalidCircuitBreakerConfig is returned when circuit breaker config is invalid
var ErrInvalidCircuitBreakerConfig = errors.New("invalid circuit breaker configuration")

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) (*CircuitBreaker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCircuitBreakerConfig, err)
	}
	return &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  CircuitBreakerStateClosed,
	}, nil
}

// MustNewCircuitBreaker is NewCircuitBreaker for configurations known to be valid
func MustNewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	cb, err := NewCircuitBreaker(config)
	if err != nil {
		panic(err)
	}
	return cb
}

// Allow reports whether the caller may use the dependency now
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitBreakerStateOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.Cooldown {
			return ErrCircuitBreakerOpen
		}
		cb.state = CircuitBreakerStateHalfOpen
		cb.probing = true
		return nil
	case CircuitBreakerStateHalfOpen:
		if cb.probing {
			return ErrCircuitBreakerOpen
		}
		cb.probing = true
		return nil
	default:
		return nil
	}
}

// RecordSuccess closes the circuit. It returns the state transition.
func (cb *CircuitBreaker) RecordSuccess() (oldState, newState CircuitBreakerState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState = cb.state
	cb.state = CircuitBreakerStateClosed
	cb.failures = 0
	cb.probing = false
	return oldState, cb.state
}

// RecordFailure counts a failure, opening the circuit at MaxFailures or when
// a probe fails. It returns the state transition.
func (cb *CircuitBreaker) RecordFailure() (oldState, newState CircuitBreakerState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState = cb.state
	cb.failures++
	cb.probing = false
	if cb.state == CircuitBreakerStateHalfOpen || cb.failures >= cb.config.MaxFailures {
		cb.state = CircuitBreakerStateOpen
		cb.openedAt = cb.now()
	}
	return oldState, cb.state
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count
func (cb *CircuitBreaker) Failures() uint32 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

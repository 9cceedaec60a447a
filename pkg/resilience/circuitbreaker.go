// Package resilience guards calls to the catalog source with a circuit
// breaker and backoff retries under per-call deadlines.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

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

// CircuitBreakerConfig controls when the breaker trips and how it probes
// for recovery. IsFailure decides which errors count; by default every
// non-nil error does. OnStateChange runs outside the breaker lock.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	IsFailure           func(error) bool
	OnStateChange       func(name string, from, to State)
}

// Counts is a point-in-time view of a breaker.
type Counts struct {
	State               State
	ConsecutiveFailures int
	TotalFailures       int64
	Rejected            int64
	// RetryAfter is how long an open breaker keeps rejecting calls.
	RetryAfter time.Duration
}

// CircuitBreaker trips open after FailureThreshold consecutive failures,
// rejects calls for ResetTimeout, then lets HalfOpenMaxRequests probes
// through. A successful probe closes it; a failed one reopens it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	openedAt  time.Time
	probes    int
	failures  int
	totalFail int64
	rejected  int64
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute runs fn unless the breaker is rejecting calls, in which case the
// error wraps ErrCircuitOpen and fn is not called.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	c := Counts{
		State:               cb.state,
		ConsecutiveFailures: cb.failures,
		TotalFailures:       cb.totalFail,
		Rejected:            cb.rejected,
	}
	if cb.state == StateOpen {
		c.RetryAfter = max(0, cb.cfg.ResetTimeout-time.Since(cb.openedAt))
	}
	return c
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	from := cb.state
	var err error
	switch cb.state {
	case StateOpen:
		if wait := cb.cfg.ResetTimeout - time.Since(cb.openedAt); wait > 0 {
			cb.rejected++
			err = fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
			break
		}
		cb.state = StateHalfOpen
		cb.probes = 1
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			cb.rejected++
			err = fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
			break
		}
		cb.probes++
	}
	to := cb.state
	cb.mu.Unlock()
	cb.changed(from, to)
	return err
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	from := cb.state
	if cb.cfg.IsFailure(err) {
		cb.failures++
		cb.totalFail++
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
			cb.openedAt = time.Now()
		}
	} else if cb.state != StateOpen {
		// a straggler admitted before the trip cannot close the breaker
		cb.failures = 0
		cb.state = StateClosed
	}
	to := cb.state
	failures := cb.failures
	cb.mu.Unlock()
	if from != to && to == StateOpen {
		cb.logger.Warn("circuit opened", "consecutive_failures", failures, "reset_timeout", cb.cfg.ResetTimeout)
	}
	cb.changed(from, to)
}

func (cb *CircuitBreaker) changed(from, to State) {
	if from == to {
		return
	}
	cb.logger.Info("circuit state changed", "from", from.String(), "to", to.String())
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}

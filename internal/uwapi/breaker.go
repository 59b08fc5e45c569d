package uwapi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// BreakerState identifies the circuit breaker state.
type BreakerState string

const (
	// StateClosed is normal operation; calls pass through.
	StateClosed BreakerState = "closed"
	// StateOpen rejects calls immediately until the reset timeout elapses.
	StateOpen BreakerState = "open"
	// StateHalfOpen probes recovery with trial calls. A single failure
	// reopens the circuit.
	StateHalfOpen BreakerState = "half_open"
)

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 30 * time.Second
	DefaultSuccessThreshold = 2
)

// BreakerConfig holds the immutable circuit breaker tuning knobs.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive Closed-state failures
	// that opens the circuit.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays Open before probing.
	ResetTimeout time.Duration
	// SuccessThreshold is the number of consecutive HalfOpen successes
	// required to close the circuit.
	SuccessThreshold int
}

// DefaultBreakerConfig returns the stock configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: DefaultFailureThreshold,
		ResetTimeout:     DefaultResetTimeout,
		SuccessThreshold: DefaultSuccessThreshold,
	}
}

// OpenError is returned by Execute while the circuit is Open. The wrapped
// operation is not invoked.
type OpenError struct {
	State   BreakerState
	RetryIn time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker is %s, retry in %s", e.State, e.RetryIn.Round(time.Millisecond))
}

// neutralOutcome wraps an op result that carries no signal about upstream
// health. Execute unwraps it and records neither success nor failure, so a
// quota rejection cannot trip the circuit or count as recovery evidence.
type neutralOutcome struct {
	result any
}

func (e *neutralOutcome) Error() string {
	return "outcome carries no upstream health signal"
}

// CircuitBreaker isolates a failing dependency behind a three-state machine:
// Closed passes calls through, Open fails fast, HalfOpen admits probes and
// reopens on the first failure.
type CircuitBreaker struct {
	// Clock overrides the time source, for tests.
	Clock func() time.Time

	// OnStateChange, when set, is invoked after every state transition
	// with the old and new states. It runs outside the breaker's lock.
	OnStateChange func(from, to BreakerState)

	cfg BreakerConfig

	mu           sync.Mutex
	state        BreakerState
	failureCount int
	successCount int
	lastFailure  time.Time
	nextAttempt  time.Time
}

// NewCircuitBreaker validates the configuration and returns a breaker in the
// Closed state. All thresholds and the reset timeout must be positive.
func NewCircuitBreaker(cfg BreakerConfig) (*CircuitBreaker, error) {
	if cfg.FailureThreshold <= 0 {
		return nil, fmt.Errorf("failure threshold must be positive, got %d", cfg.FailureThreshold)
	}
	if cfg.ResetTimeout <= 0 {
		return nil, fmt.Errorf("reset timeout must be positive, got %s", cfg.ResetTimeout)
	}
	if cfg.SuccessThreshold <= 0 {
		return nil, fmt.Errorf("success threshold must be positive, got %d", cfg.SuccessThreshold)
	}
	return &CircuitBreaker{
		cfg:   cfg,
		state: StateClosed,
	}, nil
}

// Execute runs op through the breaker. While Open it returns *OpenError
// without invoking op; otherwise the op's own error is passed back to the
// caller after the state machine records the outcome. An op may return a
// neutralOutcome to hand back a result without moving the state machine.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) (any, error)) (any, error) {
	if err := cb.beforeCall(); err != nil {
		return nil, err
	}

	result, err := op(ctx)
	if err != nil {
		var neutral *neutralOutcome
		if errors.As(err, &neutral) {
			return neutral.result, nil
		}
		cb.onFailure()
		return nil, err
	}

	cb.onSuccess()
	return result, nil
}

// BreakerStatus is a read-only view of the breaker state. NextAttempt is the
// zero time unless the circuit is Open.
type BreakerStatus struct {
	State        BreakerState `json:"state"`
	FailureCount int          `json:"failure_count"`
	SuccessCount int          `json:"success_count"`
	NextAttempt  time.Time    `json:"next_attempt,omitzero"`
}

// Status reports the current state without mutating it.
func (cb *CircuitBreaker) Status() BreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	status := BreakerStatus{
		State:        cb.state,
		FailureCount: cb.failureCount,
		SuccessCount: cb.successCount,
	}
	if cb.state == StateOpen {
		status.NextAttempt = cb.nextAttempt
	}
	return status
}

// beforeCall applies the Open→HalfOpen auto-transition and rejects while the
// circuit is still Open.
func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()

	now := cb.now()
	if cb.state == StateOpen {
		if now.Before(cb.nextAttempt) {
			retryIn := cb.nextAttempt.Sub(now)
			cb.mu.Unlock()
			return &OpenError{
				State:   StateOpen,
				RetryIn: retryIn,
			}
		}
		cb.state = StateHalfOpen
		cb.successCount = 0
		cb.mu.Unlock()
		cb.notify(StateOpen, StateHalfOpen)
		return nil
	}

	cb.mu.Unlock()
	return nil
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	from := cb.state

	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.reset()
		}
	case StateClosed:
		// Threshold counts consecutive failures; any success clears it.
		cb.failureCount = 0
	}

	to := cb.state
	cb.mu.Unlock()
	if from != to {
		cb.notify(from, to)
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	from := cb.state

	now := cb.now()
	cb.lastFailure = now
	cb.failureCount++

	switch cb.state {
	case StateHalfOpen:
		// One strike during recovery probing reopens the circuit.
		cb.trip(now)
	case StateClosed:
		if cb.failureCount >= cb.cfg.FailureThreshold {
			cb.trip(now)
		}
	}

	to := cb.state
	cb.mu.Unlock()
	if from != to {
		cb.notify(from, to)
	}
}

func (cb *CircuitBreaker) notify(from, to BreakerState) {
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}

// trip moves to Open. Caller must hold the lock.
func (cb *CircuitBreaker) trip(now time.Time) {
	cb.state = StateOpen
	cb.successCount = 0
	cb.nextAttempt = now.Add(cb.cfg.ResetTimeout)
}

// reset moves to Closed and zeroes all bookkeeping. Caller must hold the lock.
func (cb *CircuitBreaker) reset() {
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.lastFailure = time.Time{}
	cb.nextAttempt = time.Time{}
}

func (cb *CircuitBreaker) now() time.Time {
	if cb.Clock != nil {
		return cb.Clock()
	}
	return time.Now()
}

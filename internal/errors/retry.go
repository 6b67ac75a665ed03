// Package errors provides retry and circuit breaker utilities.
package errors

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// ============================================================
// Retry Configuration
// ============================================================

// Policy defines retry behavior.
type Policy struct {
	// MaxAttempts is the maximum number of attempts (including the first)
	MaxAttempts int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier (default: 2)
	Multiplier float64

	// Jitter enables randomized jitter to prevent thundering herd
	Jitter bool

	// RetryIf determines if an error is retryable
	RetryIf func(error) bool
}

// DefaultPolicy returns a reasonable default retry policy.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		RetryIf:      IsRetryable,
	}
}

// DownloadPolicy returns the policy used for model file transfers: few
// attempts, long waits, because each attempt can move hundreds of megabytes.
func DownloadPolicy() *Policy {
	return &Policy{
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		RetryIf:      IsRetryable,
	}
}

// CloudPolicy returns the policy for cloud API calls.
func CloudPolicy() *Policy {
	return &Policy{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		RetryIf: func(err error) bool {
			category := GetCategory(err)
			return category == CategoryTemporary || category == CategoryRateLimit
		},
	}
}

// ============================================================
// Retry Functions
// ============================================================

// Do executes a function with retry logic.
func Do(ctx context.Context, policy *Policy, fn func() error) error {
	if policy == nil {
		policy = DefaultPolicy()
	}

	var lastErr error
	delay := policy.InitialDelay

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if policy.RetryIf != nil && !policy.RetryIf(lastErr) {
			return lastErr
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}

		if policy.Jitter {
			jitter := time.Duration(rand.Float64() * float64(delay) * 0.1)
			delay += jitter
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// DoWithResult executes a function that returns a result with retry logic.
func DoWithResult[T any](ctx context.Context, policy *Policy, fn func() (T, error)) (T, error) {
	var zero T
	var result T
	var lastErr error

	if policy == nil {
		policy = DefaultPolicy()
	}
	delay := policy.InitialDelay

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if policy.RetryIf != nil && !policy.RetryIf(lastErr) {
			return zero, lastErr
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}

		if policy.Jitter {
			jitter := time.Duration(rand.Float64() * float64(delay) * 0.1)
			delay += jitter
		}
	}

	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// ============================================================
// Circuit Breaker
// ============================================================

// BreakerState represents the circuit breaker state.
type BreakerState int

const (
	StateClosed   BreakerState = iota // Normal operation
	StateOpen                         // Failing, reject requests
	StateHalfOpen                     // Testing if service recovered
)

// String returns the state name.
func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker prevents hammering a backend that is consistently failing.
// The routing engine consults Allow before placing a tier in a fallback
// chain and reports outcomes through RecordSuccess/RecordFailure.
type CircuitBreaker struct {
	mu sync.RWMutex

	// Configuration
	maxFailures      int
	resetTimeout     time.Duration
	halfOpenAttempts int

	// State
	state           BreakerState
	failures        int
	lastFailureTime time.Time
	halfOpenCount   int

	// Name for identification
	name string
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening
	MaxFailures int

	// ResetTimeout is how long to wait before trying again
	ResetTimeout time.Duration

	// HalfOpenAttempts is how many requests to allow in half-open state
	HalfOpenAttempts int
}

// DefaultCircuitBreakerConfig returns default circuit breaker config.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      3,
		ResetTimeout:     60 * time.Second,
		HalfOpenAttempts: 2,
	}
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(name string, config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}

	return &CircuitBreaker{
		name:             name,
		maxFailures:      config.MaxFailures,
		resetTimeout:     config.ResetTimeout,
		halfOpenAttempts: config.HalfOpenAttempts,
		state:            StateClosed,
	}
}

// Execute runs a function through the circuit breaker.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return Temporary(CodeModelUnavailable,
			fmt.Sprintf("circuit breaker '%s' is open", cb.name))
	}

	err := fn()
	if err == nil {
		cb.RecordSuccess()
	} else {
		cb.RecordFailure()
	}
	return err
}

// Allow reports whether a request may be sent through this breaker.
// An open breaker transitions to half-open after the reset timeout.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.lastFailureTime) > cb.resetTimeout {
			cb.state = StateHalfOpen
			cb.halfOpenCount = 1
			return true
		}
		return false
	case StateHalfOpen:
		if cb.halfOpenCount < cb.halfOpenAttempts {
			cb.halfOpenCount++
			return true
		}
		return false
	}

	return false
}

// Available reports whether the breaker would admit a request, without
// consuming a half-open attempt. Used when building fallback chains.
func (cb *CircuitBreaker) Available() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if cb.state == StateOpen {
		return time.Since(cb.lastFailureTime) > cb.resetTimeout
	}
	return true
}

// RecordSuccess resets the consecutive failure count and closes the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == StateHalfOpen || cb.state == StateOpen {
		cb.state = StateClosed
	}
}

// RecordFailure increments the failure count and trips the breaker if the
// threshold is crossed.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	if cb.failures >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Name returns the breaker's identifier.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenCount = 0
}

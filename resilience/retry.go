package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/iAL-2/fed-soma-pipeline/logging"
)

// RetryableError marks a failure that is worth repeating within the attempt
// budget. Anything not wrapped in it is treated as fatal and returned to the
// caller on the first attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Retryable classifies err as retryable. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries the retryable classification
// anywhere in its chain.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// RetryPolicy defines retry behavior
type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy returns the retry behavior the remote source is known
// to tolerate: three attempts with 1.5^attempt second waits between them.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:   3,
		BaseDelay:     time.Second,
		MaxDelay:      5 * time.Minute,
		BackoffFactor: 1.5,
	}
}

// RetryMetrics tracks retry statistics
type RetryMetrics struct {
	Attempts    int64
	Retries     int64
	Recoveries  int64
	Exhausted   int64
	TotalWaited time.Duration
}

// RetryManager handles retry logic with backoff
type RetryManager struct {
	policy  *RetryPolicy
	logger  *logging.ComponentLogger
	sleep   func(ctx context.Context, d time.Duration) error
	metrics RetryMetrics
	mu      sync.Mutex
}

// NewRetryManager creates a new retry manager
func NewRetryManager(policy *RetryPolicy, logger *logging.ComponentLogger) *RetryManager {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	return &RetryManager{
		policy: policy,
		logger: logger,
		sleep:  waitFor,
	}
}

// SetSleep replaces the inter-attempt wait. Tests use it to observe the
// requested delays without sleeping through them.
func (rm *RetryManager) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	rm.sleep = fn
}

// Execute runs fn up to MaxAttempts times. A failure classified Retryable is
// followed by a backoff^attempt wait and another attempt; any other failure
// returns immediately. The final attempt's error is returned once the budget
// is exhausted.
func (rm *RetryManager) Execute(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= rm.policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rm.recordAttempt()
		err := fn()
		if err == nil {
			if attempt > 1 {
				rm.recordRecovery()
				rm.logger.Info().
					Str("operation", operation).
					Int("attempts", attempt).
					Msg("Operation succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !IsRetryable(err) {
			rm.logger.Debug().
				Str("operation", operation).
				Err(err).
				Msg("Error is not retryable")
			return err
		}

		if attempt >= rm.policy.MaxAttempts {
			rm.recordExhaustion()
			rm.logger.Error().
				Str("operation", operation).
				Int("attempts", attempt).
				Err(err).
				Msg("Operation failed after max attempts")
			return fmt.Errorf("operation failed after %d attempts: %w", attempt, err)
		}

		delay := rm.calculateDelay(attempt)

		rm.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Err(err).
			Msg("Operation failed, retrying")

		rm.recordWait(delay)
		if err := rm.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

// ExecuteWithResult executes a function that returns a value with retry logic
func ExecuteWithResult[T any](ctx context.Context, rm *RetryManager, operation string, fn func() (T, error)) (T, error) {
	var result T
	err := rm.Execute(ctx, operation, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

// calculateDelay returns the wait after the given 1-based failed attempt:
// BaseDelay * BackoffFactor^attempt, capped at MaxDelay.
func (rm *RetryManager) calculateDelay(attempt int) time.Duration {
	delay := float64(rm.policy.BaseDelay) * math.Pow(rm.policy.BackoffFactor, float64(attempt))

	if delay > float64(rm.policy.MaxDelay) {
		delay = float64(rm.policy.MaxDelay)
	}

	return time.Duration(delay)
}

func (rm *RetryManager) recordAttempt() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.metrics.Attempts++
}

func (rm *RetryManager) recordWait(d time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.metrics.Retries++
	rm.metrics.TotalWaited += d
}

func (rm *RetryManager) recordRecovery() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.metrics.Recoveries++
}

func (rm *RetryManager) recordExhaustion() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.metrics.Exhausted++
}

// GetMetrics returns retry metrics
func (rm *RetryManager) GetMetrics() RetryMetrics {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.metrics
}

// waitFor sleeps for d unless the context ends first.
func waitFor(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package node

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts (including initial)
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns the default retry configuration.
// 3 attempts total with delays of roughly 500ms and 1s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// RetryWithConfig runs operation until it succeeds, fails with a
// non-retryable error, or runs out of attempts.
func RetryWithConfig[T any](ctx context.Context, cfg RetryConfig, operation func() (T, error)) (T, error) {
	var result T
	var err error

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) {
			return result, err
		}

		if attempt < attempts-1 {
			timer := time.NewTimer(backoff(attempt, cfg.BaseDelay, cfg.MaxDelay, err))
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return result, exhausted(err, attempts)
}

// exhausted returns the last failure with the retry marker removed. A
// SyncError in the chain is returned with the attempt count in its details.
func exhausted(err error, attempts int) error {
	var se *syncerr.SyncError
	if !errors.As(err, &se) {
		var re *retryableError
		if errors.As(err, &re) {
			err = re.err
		}
		return fmt.Errorf("node command failed after %d attempts: %w", attempts, err)
	}

	details := make(map[string]string, len(se.Details)+1)
	for k, v := range se.Details {
		details[k] = v
	}
	details["attempts"] = strconv.Itoa(attempts)
	return syncerr.WithDetails(se, details)
}

// backoff returns the delay before the next attempt: exponential with
// jitter in [delay/2, delay), or the server's Retry-After when it is longer.
func backoff(attempt int, baseDelay, maxDelay time.Duration, err error) time.Duration {
	delay := baseDelay * (1 << attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	var wait time.Duration
	if half := delay / 2; half > 0 {
		wait = half + rand.N(half) //nolint:gosec // G404: jitter does not need crypto randomness
	}

	var ra *retryAfterError
	if errors.As(err, &ra) && ra.after > wait {
		return min(ra.after, maxDelay)
	}
	return wait
}

// IsRetryable reports whether err should trigger another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re *retryableError
	return errors.As(err, &re) || errors.Is(err, context.DeadlineExceeded)
}

// WrapRetryable marks err as retryable.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// retryableError marks a node failure worth another attempt. It is not a
// SyncError so the wrapped error keeps its own code when rendered.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// retryAfterError carries a server-requested delay.
type retryAfterError struct {
	after time.Duration
	err   error
}

func (e *retryAfterError) Error() string { return e.err.Error() }
func (e *retryAfterError) Unwrap() error { return e.err }

// ParseRetryAfter parses a Retry-After header given in seconds.
// Returns 0 if the header is empty or malformed.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

package database

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

const (
	defaultRetryAttempts = 5
	baseRetryDelay       = 20 * time.Millisecond
	maxRetryDelay        = 1 * time.Second
)

// RetryPolicy bounds WithRetry.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy retries five times starting at 20ms, capped at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  defaultRetryAttempts,
		BaseDelay: baseRetryDelay,
		MaxDelay:  maxRetryDelay,
	}
}

// IsTransient reports whether err is a lock contention error worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// WithRetry runs fn, retrying transient failures with exponential backoff.
// Non-transient errors and context cancellation return immediately.
func WithRetry(ctx context.Context, fn func() error) error {
	return WithRetryPolicy(ctx, DefaultRetryPolicy(), fn)
}

// WithRetryPolicy is WithRetry with an explicit policy.
func WithRetryPolicy(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil || !IsTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(backoff(policy, attempt)):
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		}
	}
	return err
}

// backoff returns BaseDelay * 2^(attempt-1), capped at MaxDelay.
func backoff(policy RetryPolicy, attempt int) time.Duration {
	delay := float64(policy.BaseDelay) * math.Pow(2, float64(attempt-1))
	if policy.MaxDelay > 0 && delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}
	return time.Duration(delay)
}

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = RetryPolicy{Attempts: 4, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, IsTransient(errors.New("database table is locked")))
	assert.False(t, IsTransient(errors.New("no such table: valuations")))
	assert.False(t, IsTransient(nil))
}

func TestWithRetryPolicy_RetriesTransientFailures(t *testing.T) {
	calls := 0
	err := WithRetryPolicy(context.Background(), fastPolicy, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryPolicy_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := WithRetryPolicy(context.Background(), fastPolicy, func() error {
		calls++
		return errors.New("constraint failed")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryPolicy_GivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := WithRetryPolicy(context.Background(), fastPolicy, func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})

	require.Error(t, err)
	assert.Equal(t, fastPolicy.Attempts, calls)
}

func TestWithRetryPolicy_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := RetryPolicy{Attempts: 3, BaseDelay: time.Hour}
	err := WithRetryPolicy(ctx, policy, func() error { return errors.New("database is locked") })

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}

	assert.Equal(t, 10*time.Millisecond, backoff(policy, 1))
	assert.Equal(t, 20*time.Millisecond, backoff(policy, 2))
	assert.Equal(t, 40*time.Millisecond, backoff(policy, 3))
	assert.Equal(t, 50*time.Millisecond, backoff(policy, 4))
}

package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: maxAttempts, InitialBackoff: time.Millisecond, Multiplier: 1}
}

func TestRetryPolicy_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_RetriesNetworkFailures(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewSyncError(CodeNetworkUnreachable, "down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_RetriesUnknownOutcome(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return NewSyncError(CodeUnknownOutcome, "cut off")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls, "unknown outcomes retry because the batch is idempotent")
	assert.Equal(t, CodeUnknownOutcome, CodeOf(err))
}

func TestRetryPolicy_DoesNotRetryRejections(t *testing.T) {
	for _, code := range []FailureCode{
		CodePermissionDenied,
		CodeAlreadyUsedToday,
		CodeValidationRejected,
		CodeServerError,
	} {
		calls := 0
		err := fastPolicy(3).Do(context.Background(), "op", func(ctx context.Context) error {
			calls++
			return NewSyncError(code, "nope")
		})
		require.Error(t, err, "code %s", code)
		assert.Equal(t, 1, calls, "code %s must not retry", code)
	}
}

func TestRetryPolicy_BudgetSpent(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return NewSyncError(CodeNetworkTimeout, "slow")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_ContextCancelStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Hour, Multiplier: 1}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, "op", func(ctx context.Context) error {
			calls++
			return NewSyncError(CodeNetworkUnreachable, "down")
		})
	}()

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
}

func TestRetryPolicy_ZeroAttemptsTreatedAsOne(t *testing.T) {
	calls := 0
	err := fastPolicy(0).Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return NewSyncError(CodeNetworkTimeout, "slow")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(NewSyncError(CodeNetworkTimeout, "")))
	assert.True(t, Retryable(NewSyncError(CodeNetworkUnreachable, "")))
	assert.True(t, Retryable(NewSyncError(CodeUnknownOutcome, "")))
	assert.False(t, Retryable(NewSyncError(CodeServerError, "")))
	assert.False(t, Retryable(context.Canceled))
	assert.False(t, Retryable(nil))
}

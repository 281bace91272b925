package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/types"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func transientErr() error {
	return types.NewError(types.ErrProviderTransient, "rate limited").WithRetryable(true)
}

func TestRetryer_SucceedsFirstTry(t *testing.T) {
	r := NewRetryer(fastPolicy(), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryer_RetriesTransientErrors(t *testing.T) {
	r := NewRetryer(fastPolicy(), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return transientErr()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryer_DoesNotRetryFatalErrors(t *testing.T) {
	r := NewRetryer(fastPolicy(), zap.NewNop())

	calls := 0
	fatal := types.NewError(types.ErrProviderFatal, "auth failure")
	err := r.Do(context.Background(), func() error {
		calls++
		return fatal
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, types.ErrProviderFatal, types.GetErrorCode(err))
}

func TestRetryer_ExhaustsRetries(t *testing.T) {
	r := NewRetryer(fastPolicy(), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return transientErr()
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls) // initial attempt + 3 retries
	var typed *types.Error
	assert.True(t, errors.As(err, &typed))
}

func TestRetryer_ContextCancellation(t *testing.T) {
	r := NewRetryer(&RetryPolicy{
		MaxRetries:   5,
		InitialDelay: time.Hour, // would block without cancellation
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, func() error { return transientErr() })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryer_OnRetryCallback(t *testing.T) {
	policy := fastPolicy()
	var attempts []int
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	r := NewRetryer(policy, zap.NewNop())
	_ = r.Do(context.Background(), func() error { return transientErr() })

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestRetryer_DelayBounds(t *testing.T) {
	r := NewRetryer(&RetryPolicy{
		MaxRetries:   10,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   3.0,
	}, zap.NewNop())

	for attempt := 1; attempt <= 10; attempt++ {
		d := r.calculateDelay(attempt)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, time.Second)
	}
}

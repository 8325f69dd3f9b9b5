package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithExponentialBackoff_Success(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, WithInitialDelay(time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithExponentialBackoff_MaxRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return errors.New("persistent error")
	}, WithMaxRetries(3), WithInitialDelay(time.Millisecond), WithMultiplier(1))

	require.Error(t, err)
	// MaxRetries counts retries after the first attempt.
	assert.Equal(t, 4, attempts)
	assert.Contains(t, err.Error(), "persistent error")
}

func TestWithExponentialBackoff_ContextCancellation(t *testing.T) {
	t.Parallel()
	attempts := 0
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithExponentialBackoff(ctx, func() error {
		attempts++
		return errors.New("error")
	}, WithInitialDelay(10*time.Millisecond))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_FatalError(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return Fatal(errors.New("fatal error"))
	}, WithInitialDelay(time.Millisecond))

	assert.True(t, IsFatal(err))
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_RetryIf(t *testing.T) {
	t.Parallel()
	transient := errors.New("Throttling")
	permanent := errors.New("InvalidParameter")

	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return transient
		}
		return permanent
	},
		WithInitialDelay(time.Millisecond),
		WithRetryIf(func(err error) bool { return errors.Is(err, transient) }))

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 3, attempts)
}

func TestWithExponentialBackoff_MaxDelayCapsBackoff(t *testing.T) {
	t.Parallel()
	attempts := 0
	start := time.Now()
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 4 {
			return errors.New("error")
		}
		return nil
	}, WithInitialDelay(5*time.Millisecond), WithMultiplier(100), WithMaxDelay(10*time.Millisecond))

	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFatal(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Fatal(nil))

	sentinel := errors.New("sentinel error")
	err := Fatal(sentinel)
	assert.True(t, IsFatal(err))
	assert.Equal(t, sentinel.Error(), err.Error())
	assert.ErrorIs(t, err, sentinel)

	wrapped := fmt.Errorf("context: %w", err)
	assert.True(t, IsFatal(wrapped))
	assert.ErrorIs(t, wrapped, sentinel)
	assert.False(t, IsFatal(errors.New("regular error")))
}

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("busy")

func fast(attempts int) []Option {
	return []Option{WithMaxAttempts(attempts), WithInitialDelay(time.Microsecond), WithMaxDelay(time.Millisecond), WithJitter(0)}
}

func TestDo_SucceedsAfterRetryableFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errBusy)
		}
		return nil
	}, fast(5)...)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errBusy)
	}, fast(5)...)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errBusy)
	assert.False(t, IsPermanent(err), "permanent wrapper is stripped")
}

func TestDo_UnmarkedErrorIsNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errBusy
	}, fast(5)...)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errBusy)
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	var retried []int
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errBusy)
	}, append(fast(4), WithOnRetry(func(attempt int, _ error, _ time.Duration) {
		retried = append(retried, attempt)
	}))...)

	assert.Equal(t, 4, calls)
	assert.Equal(t, []int{1, 2, 3}, retried)
	require.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, errBusy)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 4, ex.Attempts)
}

func TestDo_RetryIf(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errBusy
	}, append(fast(3), WithRetryIf(func(err error) bool { return errors.Is(err, errBusy) }))...)

	assert.Equal(t, 3, calls)
	assert.True(t, IsExhausted(err))
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, func(context.Context) error {
		calls++
		return nil
	})

	assert.Zero(t, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithRetrier_ReturnsData(t *testing.T) {
	r := ContentionRetrier(3, time.Microsecond, time.Millisecond)
	assert.Equal(t, 3, r.Attempts())

	calls := 0
	got, err := DoWithRetrier(context.Background(), r, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", Retryable(errBusy)
		}
		return "seat", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "seat", got)
	assert.Equal(t, 2, calls)
}

func TestCalculateDelay_CappedAndNonNegative(t *testing.T) {
	r := New(WithInitialDelay(10*time.Millisecond), WithMaxDelay(25*time.Millisecond), WithMultiplier(2), WithJitter(0))

	assert.Equal(t, 10*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 20*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 25*time.Millisecond, r.calculateDelay(5))

	jittered := New(WithInitialDelay(10*time.Millisecond), WithJitter(1))
	for i := 0; i < 50; i++ {
		assert.GreaterOrEqual(t, jittered.calculateDelay(1), time.Duration(0))
	}
}

func TestDo_ContextEndsDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	err := Do(ctx, func(context.Context) error {
		cancel()
		return Retryable(errBusy)
	}, WithMaxAttempts(5), WithInitialDelay(time.Hour), WithJitter(0))

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsRetryable(err))
}

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient failure")

func fastOpts() []Option {
	return []Option{
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(5 * time.Millisecond),
		WithJitter(0),
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, fastOpts()...)

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errTransient)
		}
		return nil
	}, fastOpts()...)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errTransient)
	}, fastOpts()...)

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDo_PlainErrorNotRetriedByDefault(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	}, fastOpts()...)

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDo_BudgetExhaustedReturnsUnwrappedError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errTransient)
	}, fastOpts()...)

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
	// The wrapper is stripped so callers match on the domain error.
	assert.False(t, IsRetryable(err))
}

func TestDo_ContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return Retryable(errTransient)
	}, WithMaxAttempts(10), WithInitialDelay(time.Millisecond), WithJitter(0))

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	opts := append(fastOpts(), WithOnRetry(func(attempt int, err error, _ time.Duration) {
		attempts = append(attempts, attempt)
		assert.ErrorIs(t, err, errTransient)
	}))

	_ = Do(context.Background(), func(context.Context) error {
		return Retryable(errTransient)
	}, opts...)

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoWithData_ReturnsValue(t *testing.T) {
	calls := 0
	value, err := DoWithData(context.Background(), func(context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, Retryable(errTransient)
		}
		return 42, nil
	}, fastOpts()...)

	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestRetryIf_CustomPredicate(t *testing.T) {
	calls := 0
	opts := append(fastOpts(), WithRetryIf(func(err error) bool {
		return errors.Is(err, errTransient)
	}))

	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	}, opts...)

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestCalculateDelay_CappedAndNonNegative(t *testing.T) {
	r := New(
		WithInitialDelay(10*time.Millisecond),
		WithMaxDelay(40*time.Millisecond),
		WithMultiplier(2.0),
		WithJitter(0),
	)

	assert.Equal(t, 10*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 20*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 40*time.Millisecond, r.calculateDelay(3))
	// Capped at MaxDelay from here on.
	assert.Equal(t, 40*time.Millisecond, r.calculateDelay(10))
}

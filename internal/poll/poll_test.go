package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntilSucceedsAfterSeveralChecks(t *testing.T) {
	calls := 0
	attempts, err := Until(context.Background(), Policy{Interval: time.Millisecond}, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestUntilChecksBeforeSleeping(t *testing.T) {
	start := time.Now()
	attempts, err := Until(context.Background(), Policy{Interval: time.Hour}, func(context.Context) (bool, error) {
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestUntilMaxAttempts(t *testing.T) {
	attempts, err := Until(context.Background(), Policy{Interval: time.Millisecond, MaxAttempts: 4}, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 4, attempts)
}

func TestUntilTimeout(t *testing.T) {
	_, err := Until(context.Background(), Policy{Interval: 5 * time.Millisecond, Timeout: 20 * time.Millisecond}, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Until(ctx, DefaultPolicy(), func(context.Context) (bool, error) {
		calls++
		cancel()
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestUntilConditionError(t *testing.T) {
	boom := errors.New("boom")
	attempts, err := Until(context.Background(), DefaultPolicy(), func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestSleepZero(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
}

func TestUntilTimeoutDuringCheck(t *testing.T) {
	_, err := Until(context.Background(), Policy{Interval: time.Millisecond, Timeout: 20 * time.Millisecond}, func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUntilCallerDeadlineIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Until(ctx, Policy{Interval: time.Millisecond}, func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, ErrTimeout))
}

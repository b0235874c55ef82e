// Package poll waits for a condition that is completed by an external
// process, checking it at a fixed interval.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrExhausted is returned when the condition is still false after
	// Policy.MaxAttempts checks.
	ErrExhausted = errors.New("poll: attempts exhausted")

	// ErrTimeout is returned when Policy.Timeout elapses first.
	ErrTimeout = errors.New("poll: timed out")
)

// Policy controls a polling loop. The zero value of MaxAttempts and Timeout
// means unbounded: the loop runs until the condition holds or ctx is done.
type Policy struct {
	Interval    time.Duration // Wait between checks
	MaxAttempts int           // Maximum number of checks (0 = infinite)
	Timeout     time.Duration // Overall deadline (0 = none)
}

// DefaultPolicy checks once a second forever.
func DefaultPolicy() Policy {
	return Policy{Interval: time.Second}
}

// Condition reports whether the awaited state has been reached. A non-nil
// error stops the loop.
type Condition func(ctx context.Context) (bool, error)

// Until checks cond, and while it reports false sleeps for p.Interval and
// checks again. It returns the number of checks made.
func Until(ctx context.Context, p Policy, cond Condition) (int, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	attempts := 0
	for {
		attempts++
		done, err := cond(ctx)
		if err != nil {
			return attempts, timedOut(p, err)
		}
		if done {
			return attempts, nil
		}
		if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
			return attempts, fmt.Errorf("%w after %d checks", ErrExhausted, attempts)
		}
		if err := Sleep(ctx, p.Interval); err != nil {
			return attempts, timedOut(p, err)
		}
	}
}

// timedOut reports an expired Policy.Timeout as ErrTimeout, keeping the
// cause in the chain.
func timedOut(p Policy, err error) error {
	if p.Timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrTimeout, p.Timeout, err)
	}
	return err
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package retry implements the bounded retry loop used to ride out
// eventual-consistency gaps in the identity provider. The decision to
// retry is a pure function of attempt count and elapsed time, so it can
// be tested without real delays.
package retry

import (
	"context"
	"time"
)

// Policy bounds a retry loop by attempt count and wall-clock time.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Delay is the fixed pause between attempts.
	Delay time.Duration
	// MaxElapsed caps total wall-clock time. Zero means no time cap.
	MaxElapsed time.Duration
}

// ShouldRetry reports whether another attempt is allowed after the
// given number of completed attempts and elapsed time.
func (p Policy) ShouldRetry(attempts int, elapsed time.Duration) bool {
	if attempts >= p.MaxAttempts {
		return false
	}
	if p.MaxElapsed > 0 && elapsed >= p.MaxElapsed {
		return false
	}
	return true
}

// SleepFunc pauses between attempts. The default honors context
// cancellation; tests inject a no-op.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn until it succeeds or the policy gives up, pausing with
// sleep between attempts. It returns the last error on giving up. The
// clock is injectable via now for deterministic tests.
func Do(ctx context.Context, p Policy, sleep SleepFunc, now func() time.Time, fn func(ctx context.Context) error) error {
	if sleep == nil {
		sleep = Sleep
	}
	if now == nil {
		now = time.Now
	}

	start := now()
	var lastErr error
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		attempts++
		if lastErr == nil {
			return nil
		}

		if !p.ShouldRetry(attempts, now().Sub(start)) {
			return lastErr
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return err
		}
	}
}

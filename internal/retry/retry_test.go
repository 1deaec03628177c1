package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolicy_ShouldRetry(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: 10 * time.Millisecond, MaxElapsed: time.Second}

	tests := []struct {
		name     string
		attempts int
		elapsed  time.Duration
		want     bool
	}{
		{"first failure retries", 1, 0, true},
		{"second failure retries", 2, 500 * time.Millisecond, true},
		{"attempts exhausted", 3, 0, false},
		{"elapsed at cap", 1, time.Second, false},
		{"elapsed past cap", 2, 2 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ShouldRetry(tt.attempts, tt.elapsed); got != tt.want {
				t.Errorf("ShouldRetry(%d, %v) = %v, want %v", tt.attempts, tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestPolicy_NoTimeCap(t *testing.T) {
	p := Policy{MaxAttempts: 5, Delay: time.Millisecond}
	if !p.ShouldRetry(4, 24*time.Hour) {
		t.Error("zero MaxElapsed should not bound retries by time")
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	noSleep := func(ctx context.Context, d time.Duration) error { return nil }

	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3, Delay: time.Second}, noSleep, nil, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestDo_GivesUpWithLastError(t *testing.T) {
	noSleep := func(ctx context.Context, d time.Duration) error { return nil }
	wantErr := errors.New("still broken")

	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 4, Delay: time.Second}, noSleep, nil, func(ctx context.Context) error {
		calls++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("Do() = %v, want %v", err, wantErr)
	}
	if calls != 4 {
		t.Errorf("fn called %d times, want 4", calls)
	}
}

func TestDo_TimeCapWithFakeClock(t *testing.T) {
	noSleep := func(ctx context.Context, d time.Duration) error { return nil }

	// Each attempt advances the fake clock by 100ms.
	clock := time.Unix(0, 0)
	now := func() time.Time {
		clock = clock.Add(100 * time.Millisecond)
		return clock
	}

	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 100, Delay: time.Millisecond, MaxElapsed: 250 * time.Millisecond}, noSleep, now, func(ctx context.Context) error {
		calls++
		return errors.New("slow dependency")
	})

	if err == nil {
		t.Fatal("Do() = nil, want error after time cap")
	}
	if calls > 4 {
		t.Errorf("fn called %d times, expected the time cap to stop it sooner", calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Policy{MaxAttempts: 3, Delay: time.Second}, nil, nil, func(ctx context.Context) error {
		t.Error("fn should not run with a cancelled context")
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() = %v, want context.Canceled", err)
	}
}

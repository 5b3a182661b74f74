package cas

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", p.MaxRetries)
	}
	if p.InitialDelay != 50*time.Millisecond {
		t.Errorf("InitialDelay = %v, want 50ms", p.InitialDelay)
	}
	if p.Multiplier != 1.5 {
		t.Errorf("Multiplier = %v, want 1.5", p.Multiplier)
	}
}

func TestDelaySchedule(t *testing.T) {
	p := DefaultPolicy()

	want := []time.Duration{
		50 * time.Millisecond,
		75 * time.Millisecond,
		112500 * time.Microsecond,
		168750 * time.Microsecond,
		253125 * time.Microsecond,
	}
	for i, w := range want {
		if got := p.DelayFor(i + 1); got != w {
			t.Errorf("DelayFor(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestRunFirstAttemptWins(t *testing.T) {
	attempts, err := Run(context.Background(), DefaultPolicy(), func(ctx context.Context) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRunRetriesLostRaces(t *testing.T) {
	policy := Policy{MaxRetries: 5, InitialDelay: time.Millisecond, Multiplier: 1.5}

	calls := 0
	attempts, err := Run(context.Background(), policy, func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRunExhaustion(t *testing.T) {
	policy := Policy{MaxRetries: 2, InitialDelay: time.Millisecond, Multiplier: 1.5}

	calls := 0
	_, err := Run(context.Background(), policy, func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	})

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Run() error = %v, want *ExhaustedError", err)
	}
	// Initial attempt plus MaxRetries retries.
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
}

func TestRunPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	calls := 0
	_, err := Run(context.Background(), DefaultPolicy(), func(ctx context.Context) (bool, error) {
		calls++
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times after hard error, want 1", calls)
	}
}

func TestRunContextCancellation(t *testing.T) {
	policy := Policy{MaxRetries: 10, InitialDelay: time.Hour, Multiplier: 2}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Run(ctx, policy, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/workclock/pkg/clock"
)

var (
	errFlaky = errors.New("flaky")
	errFatal = errors.New("fatal")
)

func isFlaky(err error) bool { return errors.Is(err, errFlaky) }

func newPolicy(c clock.Clock) Policy {
	p := Default()
	p.Clock = c
	p.Retryable = isFlaky
	return p
}

func TestExponential(t *testing.T) {
	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 30 * time.Second},
		{10, 30 * time.Second},
	}

	b := Exponential(time.Second, 30*time.Second)
	for _, tt := range tests {
		if got := b(tt.n); got != tt.want {
			t.Errorf("Exponential(1s, 30s)(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}

	uncapped := Exponential(time.Second, 0)
	if got := uncapped(8); got != 128*time.Second {
		t.Errorf("uncapped(8) = %v, want 128s", got)
	}
}

func TestWithJitter(t *testing.T) {
	base := Constant(time.Second)

	high := WithJitter(base, 0.2, func() float64 { return 1 })
	if got := high(1); got != 1200*time.Millisecond {
		t.Errorf("max jitter = %v, want 1.2s", got)
	}
	low := WithJitter(base, 0.2, func() float64 { return 0 })
	if got := low(1); got != 800*time.Millisecond {
		t.Errorf("min jitter = %v, want 800ms", got)
	}
	if got := WithJitter(base, 0, nil)(1); got != time.Second {
		t.Errorf("zero jitter = %v, want 1s", got)
	}
}

func TestDo_SucceedsOnThirdAttempt(t *testing.T) {
	c := clock.Fake(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	calls := 0

	err := newPolicy(c).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	waits := c.Waits()
	if len(waits) != 2 || waits[0] != time.Second || waits[1] != 2*time.Second {
		t.Errorf("waits = %v, want [1s 2s]", waits)
	}
}

func TestDo_Exhausted(t *testing.T) {
	c := clock.Fake(time.Time{})
	calls := 0

	err := newPolicy(c).Do(context.Background(), func(context.Context) error {
		calls++
		return errFlaky
	})

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Do() = %v, want *ExhaustedError", err)
	}
	if exhausted.Attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d calls = %d, want 3/3", exhausted.Attempts, calls)
	}
	if !errors.Is(err, errFlaky) {
		t.Error("exhausted error should wrap the last failure")
	}
	if len(c.Waits()) != 2 {
		t.Errorf("waits = %v, want 2 waits (none after the last attempt)", c.Waits())
	}
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	c := clock.Fake(time.Time{})
	calls := 0

	err := newPolicy(c).Do(context.Background(), func(context.Context) error {
		calls++
		return errFatal
	})
	if err != errFatal {
		t.Fatalf("Do() = %v, want errFatal unchanged", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(c.Waits()) != 0 {
		t.Errorf("no waits expected, got %v", c.Waits())
	}
}

func TestDo_OnRetryHook(t *testing.T) {
	p := newPolicy(clock.Fake(time.Time{}))
	var attempts []int
	var waits []time.Duration
	p.OnRetry = func(attempt int, wait time.Duration, err error) {
		attempts = append(attempts, attempt)
		waits = append(waits, wait)
	}

	_ = p.Do(context.Background(), func(context.Context) error { return errFlaky })

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", attempts)
	}
	if waits[0] != time.Second || waits[1] != 2*time.Second {
		t.Errorf("OnRetry waits = %v", waits)
	}
}

func TestDo_ContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts: 5,
		Backoff:     Constant(time.Hour),
		Clock:       clock.Real(),
	}

	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errFlaky
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestValue(t *testing.T) {
	p := newPolicy(clock.Fake(time.Time{}))
	calls := 0

	got, err := Value(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errFlaky
		}
		return "wo-1", nil
	})
	if err != nil || got != "wo-1" {
		t.Fatalf("Value() = %q, %v; want wo-1, nil", got, err)
	}
}

func TestDo_ZeroAttemptsMeansOne(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func(context.Context) error {
		calls++
		return errFlaky
	})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Attempts != 1 || calls != 1 {
		t.Errorf("Do() = %v calls=%d, want one attempt", err, calls)
	}
}

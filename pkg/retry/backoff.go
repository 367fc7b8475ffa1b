package retry

import (
	"math/rand"
	"time"
)

// Default backoff configuration values.
const (
	DefaultMaxAttempts = 3
	DefaultInitial     = 1000 * time.Millisecond
	DefaultMax         = 30 * time.Second
)

// BackoffFunc returns how long to wait before retry number n (1-based).
type BackoffFunc func(n int) time.Duration

// Exponential doubles the wait after every retry, starting at initial and
// capped at max. A non-positive max disables the cap.
func Exponential(initial, max time.Duration) BackoffFunc {
	return func(n int) time.Duration {
		if n < 1 {
			n = 1
		}
		d := initial
		for i := 1; i < n; i++ {
			d *= 2
			if max > 0 && d >= max {
				return max
			}
		}
		if max > 0 && d > max {
			return max
		}
		return d
	}
}

// Constant waits d between every attempt.
func Constant(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// WithJitter spreads each wait of b by ±frac (0.2 means ±20%).
// A nil rnd uses math/rand.
func WithJitter(b BackoffFunc, frac float64, rnd func() float64) BackoffFunc {
	if frac <= 0 {
		return b
	}
	if rnd == nil {
		rnd = rand.Float64
	}
	return func(n int) time.Duration {
		d := b(n)
		jitter := float64(d) * frac * (rnd()*2 - 1)
		return time.Duration(float64(d) + jitter)
	}
}

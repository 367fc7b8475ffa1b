package ports

import (
	"context"
	"time"
)

// Metrics records operation outcomes.
type Metrics interface {
	// Observe records one finished operation and its duration.
	Observe(ctx context.Context, op string, success bool, d time.Duration)

	// Retry records a retried attempt of op.
	Retry(op string)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

// Observe implements Metrics.
func (NoopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// Retry implements Metrics.
func (NoopMetrics) Retry(string) {}

package app

import (
	"github.com/bft-labs/workclock/internal/ports"
	"github.com/bft-labs/workclock/pkg/clock"
	"github.com/bft-labs/workclock/pkg/lifecycle"
	"github.com/bft-labs/workclock/pkg/log"
	"github.com/bft-labs/workclock/pkg/retry"
)

// Option configures a Coordinator or Service.
type Option func(*options)

type options struct {
	clock   clock.Clock
	logger  ports.Logger
	metrics ports.Metrics
	policy  retry.Policy
	emitter lifecycle.EventEmitter
}

func buildOptions(opts []Option) options {
	o := options{
		clock:   clock.Real(),
		logger:  log.NewNoopLogger(),
		metrics: ports.NoopMetrics{},
		policy:  retry.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock sets the time source. Retry waits use it too.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m ports.Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithRetryPolicy overrides the store retry policy. The retryable
// predicate and clock are always replaced by the coordinator's own.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithEmitter registers a listener for work-order status changes.
func WithEmitter(e lifecycle.EventEmitter) Option {
	return func(o *options) {
		o.emitter = e
	}
}

// Package retry provides a reusable retry policy for calls that can fail
// transiently.
//
// A Policy bundles the attempt limit, a backoff schedule, a predicate that
// decides which errors are worth retrying, and the clock used to wait:
//
//	p := retry.Default()
//	p.Retryable = domain.IsTransient
//	err := p.Do(ctx, func(ctx context.Context) error {
//	    return store.Update(ctx, "work_orders", id, doc)
//	})
//
// Non-retryable errors are returned unchanged after the first attempt. When
// every attempt fails with a retryable error, Do returns an *ExhaustedError
// wrapping the last failure.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package retry

// Package clock provides an injectable time source.
//
// Components that stamp records or wait between retries take a Clock
// instead of calling time.Now or time.After directly. Production code
// wires Real(); tests wire Fake() for deterministic timestamps and
// zero-latency waits.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	svc := app.NewService(store, identity, app.WithClock(c))
//	c.Advance(10 * time.Second)
//
// A FakeClock never blocks: After advances the fake time by the requested
// duration and fires immediately, recording the wait so tests can assert
// on backoff schedules through Waits.
package clock

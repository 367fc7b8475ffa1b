// Package lifecycle provides the timer state machine shared by every
// work-order variant.
//
// A Machine validates a requested action against the current status,
// captures the variant's checkpoint payload on Pause and Stop, and returns
// the Transition the caller applies to its record. Machines never mutate
// records themselves, and they announce a transition through Notify only
// when the caller reports it stored.
//
// # Usage
//
//	m := lifecycle.NewMachine(lifecycle.Production, logger, nil)
//	tr, err := m.Fire(ctx, lifecycle.Request{
//	    Status:  wo.Status,
//	    Entries: wo.TimeEntries,
//	    Action:  timelog.Pause,
//	    At:      now,
//	    Payload: &lifecycle.Checkpoint{Quantity: 40, Unit: "pcs"},
//	})
//	// apply tr to the record and store it, then:
//	m.Notify(tr, principalID)
//
// # State Machine
//
// Valid transitions:
//   - NotStarted -> Running (Start)
//   - Running -> Paused (Pause, checkpoint captured first)
//   - Paused -> Running (Resume)
//   - Running, Paused -> Completed (Stop, checkpoint captured first)
//   - Completed -> Submitted (Submit, no timer event)
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
package lifecycle

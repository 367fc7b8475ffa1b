package lifecycle

import (
	"context"
	"time"

	"github.com/bft-labs/workclock/pkg/timelog"
)

// Status is the lifecycle state of a work order.
type Status string

const (
	NotStarted Status = "not_started"
	Running    Status = "running"
	Paused     Status = "paused"
	Completed  Status = "completed"
	Submitted  Status = "submitted"
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case NotStarted, "":
		return "NotStarted"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Completed:
		return "Completed"
	case Submitted:
		return "Submitted"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is a known status. The empty status counts as
// NotStarted.
func (s Status) Valid() bool {
	return s.String() != "Unknown"
}

// Phase returns the time log phase a work order in status s must have.
func (s Status) Phase() timelog.Phase {
	switch s {
	case Running:
		return timelog.Running
	case Paused:
		return timelog.Paused
	case Completed, Submitted:
		return timelog.Stopped
	default:
		return timelog.Idle
	}
}

// IsTerminal reports whether no further timer events are expected.
func IsTerminal(s Status) bool {
	return s == Completed || s == Submitted
}

// Checkpoint is the payload captured when a timer pauses or stops: a
// quantity reading for production tasks, an optional note for tickets.
type Checkpoint struct {
	Action     timelog.Action `json:"action"`
	CapturedAt time.Time      `json:"captured_at"`
	Quantity   float64        `json:"quantity,omitempty"`
	Unit       string         `json:"unit,omitempty"`
	Note       string         `json:"note,omitempty"`
}

// CaptureFunc validates and normalizes the caller's checkpoint payload.
// It runs before the Pause or Stop event is appended; an error aborts the
// transition. payload may be nil.
type CaptureFunc func(ctx context.Context, action timelog.Action, payload *Checkpoint) (*Checkpoint, error)

// EventEmitter is called when a work order changes status.
type EventEmitter interface {
	OnStateChange(previous, current Status, reason string)
}

// Request asks the machine to apply one timer action.
type Request struct {
	Status  Status
	Entries timelog.Log
	Action  timelog.Action
	At      time.Time
	Payload *Checkpoint
}

// Transition is the outcome of a legal action. Event is zero for Submit.
type Transition struct {
	From       Status
	To         Status
	Event      timelog.Event
	Checkpoint *Checkpoint
}

// HasEvent reports whether the transition appends a timer event.
func (t Transition) HasEvent() bool {
	return t.Event.Action != ""
}

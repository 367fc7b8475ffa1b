package timelog

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Action is a timer lifecycle action.
type Action string

const (
	Start  Action = "start"
	Pause  Action = "pause"
	Resume Action = "resume"
	Stop   Action = "stop"
)

// Valid reports whether a is one of the four timer actions.
func (a Action) Valid() bool {
	switch a {
	case Start, Pause, Resume, Stop:
		return true
	default:
		return false
	}
}

// UnmarshalJSON rejects unknown actions.
func (a *Action) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if !Action(s).Valid() {
		return fmt.Errorf("timelog: unknown action %q", s)
	}
	*a = Action(s)
	return nil
}

// Event is one timestamped action.
type Event struct {
	Action Action    `json:"action"`
	At     time.Time `json:"at"`
}

// Phase is the timer position implied by a log.
type Phase int

const (
	Idle Phase = iota
	Running
	Paused
	Stopped
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Log errors, checked with errors.Is.
var (
	ErrOutOfSequence = errors.New("timelog: action out of sequence")
	ErrOutOfOrder    = errors.New("timelog: timestamp earlier than previous event")
	ErrAfterStop     = errors.New("timelog: event after stop")
	ErrUnknownAction = errors.New("timelog: unknown action")
)

// LogError locates a structural violation in a log.
type LogError struct {
	Index  int
	Action Action
	Kind   error
}

func (e *LogError) Error() string {
	return fmt.Sprintf("%s: event %d (%s)", e.Kind.Error(), e.Index, e.Action)
}

func (e *LogError) Unwrap() error { return e.Kind }

// Log is an ordered, append-only sequence of events.
type Log []Event

// Phase returns the timer position after replaying the log. Events that
// would be rejected by Append are skipped.
func (l Log) Phase() Phase {
	p := Idle
	for _, e := range l {
		if next, ok := advance(p, e.Action); ok {
			p = next
		}
	}
	return p
}

// Validate reports the first structural violation, or nil for a
// well-formed log.
func (l Log) Validate() error {
	p := Idle
	for i, e := range l {
		if err := check(p, l, i); err != nil {
			return err
		}
		p, _ = advance(p, e.Action)
	}
	return nil
}

// Append adds e to the log if it is legal after the current events. A
// rejected event leaves the log and its backing array untouched.
func (l *Log) Append(e Event) error {
	next := append(l.Clone(), e)
	if err := check(l.Phase(), next, len(next)-1); err != nil {
		return err
	}
	*l = next
	return nil
}

// Last returns the final event and whether the log is non-empty.
func (l Log) Last() (Event, bool) {
	if len(l) == 0 {
		return Event{}, false
	}
	return l[len(l)-1], true
}

// Clone returns an independent copy of the log.
func (l Log) Clone() Log {
	if l == nil {
		return nil
	}
	return append(Log(nil), l...)
}

func check(p Phase, l Log, i int) error {
	e := l[i]
	if !e.Action.Valid() {
		return &LogError{Index: i, Action: e.Action, Kind: ErrUnknownAction}
	}
	if p == Stopped {
		return &LogError{Index: i, Action: e.Action, Kind: ErrAfterStop}
	}
	if i > 0 && e.At.Before(l[i-1].At) {
		return &LogError{Index: i, Action: e.Action, Kind: ErrOutOfOrder}
	}
	if _, ok := advance(p, e.Action); !ok {
		return &LogError{Index: i, Action: e.Action, Kind: ErrOutOfSequence}
	}
	return nil
}

func advance(p Phase, a Action) (Phase, bool) {
	switch {
	case p == Idle && a == Start:
		return Running, true
	case p == Running && a == Pause:
		return Paused, true
	case p == Paused && a == Resume:
		return Running, true
	case (p == Running || p == Paused) && a == Stop:
		return Stopped, true
	default:
		return p, false
	}
}

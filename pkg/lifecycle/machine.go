package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/bft-labs/workclock/pkg/log"
	"github.com/bft-labs/workclock/pkg/timelog"
)

// Common lifecycle errors.
var (
	ErrIllegalTransition  = errors.New("illegal transition")
	ErrCheckpointRejected = errors.New("checkpoint rejected")
)

// TransitionError describes a refused action.
type TransitionError struct {
	From   Status
	Action string
	Kind   error
	Err    error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: cannot %s a work order that is %s", e.Kind, e.Action, e.From)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransitionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Submit is the action name used for Completed -> Submitted.
const Submit = "submit"

// Machine validates timer actions for one work-order variant.
type Machine struct {
	variant Variant
	logger  log.Logger
	emitter EventEmitter
}

// NewMachine creates a state machine for the given variant.
func NewMachine(variant Variant, logger log.Logger, emitter EventEmitter) *Machine {
	return &Machine{
		variant: variant,
		logger:  log.OrNoop(logger),
		emitter: emitter,
	}
}

// Variant returns the variant the machine was built for.
func (m *Machine) Variant() Variant {
	return m.variant
}

// Target returns the status reached by applying action in from.
func Target(from Status, action timelog.Action) (Status, bool) {
	if from == "" {
		from = NotStarted
	}
	switch {
	case from == NotStarted && action == timelog.Start:
		return Running, true
	case from == Running && action == timelog.Pause:
		return Paused, true
	case from == Paused && action == timelog.Resume:
		return Running, true
	case (from == Running || from == Paused) && action == timelog.Stop:
		return Completed, true
	default:
		return from, false
	}
}

// CanFire reports whether action is legal in status from.
func CanFire(from Status, action timelog.Action) bool {
	_, ok := Target(from, action)
	return ok
}

// Fire validates req and returns the resulting transition. The checkpoint
// is captured before the event is produced, so a rejected payload leaves
// nothing to apply.
func (m *Machine) Fire(ctx context.Context, req Request) (Transition, error) {
	from := req.Status
	if from == "" {
		from = NotStarted
	}

	to, ok := Target(from, req.Action)
	if !ok {
		return Transition{}, &TransitionError{From: from, Action: string(req.Action), Kind: ErrIllegalTransition}
	}

	var cp *Checkpoint
	if req.Action == timelog.Pause || req.Action == timelog.Stop {
		captured, err := m.capture(ctx, req)
		if err != nil {
			return Transition{}, &TransitionError{From: from, Action: string(req.Action), Kind: ErrCheckpointRejected, Err: err}
		}
		cp = captured
	}

	event := timelog.Event{Action: req.Action, At: req.At}
	entries := req.Entries.Clone()
	if err := entries.Append(event); err != nil {
		// Status and history disagree; refuse rather than corrupt the log.
		return Transition{}, &TransitionError{From: from, Action: string(req.Action), Kind: ErrIllegalTransition, Err: err}
	}

	return Transition{From: from, To: to, Event: event, Checkpoint: cp}, nil
}

// Submit validates Completed -> Submitted.
func (m *Machine) Submit(from Status) (Transition, error) {
	if from != Completed {
		return Transition{}, &TransitionError{From: from, Action: Submit, Kind: ErrIllegalTransition}
	}
	return Transition{From: from, To: Submitted}, nil
}

// Notify reports tr to the emitter and the log. Fire and Submit only
// validate; callers notify once the transition has been stored.
func (m *Machine) Notify(tr Transition, reason string) {
	action := Submit
	if tr.HasEvent() {
		action = string(tr.Event.Action)
	}

	if m.emitter != nil {
		m.emitter.OnStateChange(tr.From, tr.To, reason)
	}

	m.logger.Info("state transition",
		log.String("variant", m.variant.Name),
		log.String("action", action),
		log.String("from", tr.From.String()),
		log.String("to", tr.To.String()),
		log.String("reason", reason),
	)
}

func (m *Machine) capture(ctx context.Context, req Request) (*Checkpoint, error) {
	if m.variant.Capture == nil {
		return nil, nil
	}
	cp, err := m.variant.Capture(ctx, req.Action, req.Payload)
	if err != nil || cp == nil {
		return nil, err
	}
	cp.Action = req.Action
	cp.CapturedAt = req.At
	return cp, nil
}

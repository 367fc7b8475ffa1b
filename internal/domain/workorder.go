package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/workclock/pkg/lifecycle"
	"github.com/bft-labs/workclock/pkg/timelog"
)

// Collection names used with the document store.
const (
	CollectionWorkOrders = "work_orders"
	CollectionParts      = "parts"
)

// Kind selects the lifecycle variant of a work order.
type Kind string

const (
	KindMaintenance Kind = lifecycle.KindMaintenance
	KindProduction  Kind = lifecycle.KindProduction
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindMaintenance || k == KindProduction
}

// Priority ranks work orders for scheduling.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// WorkOrder is a unit of work whose time is tracked.
type WorkOrder struct {
	ID             string                 `json:"id"`
	SequenceNumber int64                  `json:"sequence_number"`
	OwnerID        string                 `json:"owner_id"`
	Kind           Kind                   `json:"kind"`
	Description    string                 `json:"description"`
	Machine        string                 `json:"machine,omitempty"`
	Status         lifecycle.Status       `json:"status"`
	Priority       Priority               `json:"priority"`
	TimeEntries    timelog.Log            `json:"time_entries"`
	TimeStats      timelog.Stats          `json:"time_stats"`
	Checkpoints    []lifecycle.Checkpoint `json:"checkpoints,omitempty"`
	PartUsage      []PartUsageEntry       `json:"part_usage,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	SubmittedAt    *time.Time             `json:"submitted_at,omitempty"`
}

// NewWorkOrder returns an unsaved work order in NotStarted.
func NewWorkOrder(kind Kind, description string) *WorkOrder {
	return &WorkOrder{
		Kind:        kind,
		Description: description,
		Status:      lifecycle.NotStarted,
		Priority:    PriorityMedium,
	}
}

// Normalize fills defaults for fields left empty by callers.
func (w *WorkOrder) Normalize() {
	if w.Kind == "" {
		w.Kind = KindMaintenance
	}
	if w.Status == "" {
		w.Status = lifecycle.NotStarted
	}
	if w.Priority == "" {
		w.Priority = PriorityMedium
	}
	w.Description = strings.TrimSpace(w.Description)
}

// Variant returns the lifecycle variant for the work order's kind.
func (w *WorkOrder) Variant() lifecycle.Variant {
	return lifecycle.VariantFor(string(w.Kind))
}

// Validate checks field-level rules. It does not check ownership.
func (w *WorkOrder) Validate() error {
	const op = "validate work order"
	if strings.TrimSpace(w.Description) == "" {
		return E(ErrValidationFailed, op, "description is required")
	}
	if !w.Kind.Valid() {
		return E(ErrValidationFailed, op, fmt.Sprintf("unknown kind %q", w.Kind))
	}
	if !w.Priority.Valid() {
		return E(ErrValidationFailed, op, fmt.Sprintf("unknown priority %q", w.Priority))
	}
	if !w.Status.Valid() {
		return E(ErrValidationFailed, op, fmt.Sprintf("unknown status %q", w.Status))
	}
	if err := w.TimeEntries.Validate(); err != nil {
		return Wrap(ErrValidationFailed, op, err)
	}
	if want, got := w.Status.Phase(), w.TimeEntries.Phase(); want != got {
		return E(ErrValidationFailed, op, fmt.Sprintf("status %s needs a %s time log, got %s", w.Status, want, got))
	}
	for i, p := range w.PartUsage {
		if err := p.Validate(); err != nil {
			return Wrap(ErrValidationFailed, fmt.Sprintf("%s: part usage %d", op, i), err)
		}
	}
	return nil
}

// Apply records a validated transition on the work order.
func (w *WorkOrder) Apply(tr lifecycle.Transition) {
	w.Status = tr.To
	if tr.HasEvent() {
		w.TimeEntries = append(w.TimeEntries.Clone(), tr.Event)
	}
	if tr.Checkpoint != nil {
		w.Checkpoints = append(w.Checkpoints, *tr.Checkpoint)
	}
}

// RecomputeStats derives TimeStats from TimeEntries.
func (w *WorkOrder) RecomputeStats() {
	w.TimeStats = timelog.Compute(w.TimeEntries)
}

// Clone returns a deep copy.
func (w *WorkOrder) Clone() *WorkOrder {
	c := *w
	c.TimeEntries = w.TimeEntries.Clone()
	c.TimeStats.PauseDurations = append([]time.Duration(nil), w.TimeStats.PauseDurations...)
	c.Checkpoints = append([]lifecycle.Checkpoint(nil), w.Checkpoints...)
	c.PartUsage = append([]PartUsageEntry(nil), w.PartUsage...)
	if w.CompletedAt != nil {
		t := *w.CompletedAt
		c.CompletedAt = &t
	}
	if w.SubmittedAt != nil {
		t := *w.SubmittedAt
		c.SubmittedAt = &t
	}
	return &c
}

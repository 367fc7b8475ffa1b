package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/workclock/pkg/lifecycle"
	"github.com/bft-labs/workclock/pkg/timelog"
)

var t0 = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func TestWorkOrder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(w *WorkOrder)
		wantErr bool
	}{
		{"valid", func(w *WorkOrder) {}, false},
		{"blank description", func(w *WorkOrder) { w.Description = "   " }, true},
		{"unknown kind", func(w *WorkOrder) { w.Kind = "audit" }, true},
		{"unknown priority", func(w *WorkOrder) { w.Priority = "urgent" }, true},
		{"unknown status", func(w *WorkOrder) { w.Status = "archived" }, true},
		{"malformed log", func(w *WorkOrder) {
			w.TimeEntries = timelog.Log{{Action: timelog.Pause, At: t0}}
		}, true},
		{"completed without events", func(w *WorkOrder) { w.Status = lifecycle.Completed }, true},
		{"running but stopped", func(w *WorkOrder) {
			w.Status = lifecycle.Running
			w.TimeEntries = timelog.Log{{Action: timelog.Start, At: t0}, {Action: timelog.Stop, At: t0.Add(time.Minute)}}
		}, true},
		{"not started but running", func(w *WorkOrder) {
			w.TimeEntries = timelog.Log{{Action: timelog.Start, At: t0}}
		}, true},
		{"paused matches log", func(w *WorkOrder) {
			w.Status = lifecycle.Paused
			w.TimeEntries = timelog.Log{{Action: timelog.Start, At: t0}, {Action: timelog.Pause, At: t0.Add(time.Minute)}}
		}, false},
		{"submitted matches stopped log", func(w *WorkOrder) {
			w.Status = lifecycle.Submitted
			w.TimeEntries = timelog.Log{{Action: timelog.Start, At: t0}, {Action: timelog.Stop, At: t0.Add(time.Minute)}}
		}, false},
		{"negative part quantity", func(w *WorkOrder) {
			w.PartUsage = []PartUsageEntry{{Designation: "belt", Quantity: -1}}
		}, true},
		{"empty part entry ignored", func(w *WorkOrder) {
			w.PartUsage = []PartUsageEntry{{Quantity: -1}}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorkOrder(KindMaintenance, "conveyor noise")
			tt.mutate(w)
			err := w.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidationFailed) {
				t.Errorf("Validate() = %v, want ErrValidationFailed", err)
			}
		})
	}
}

func TestWorkOrder_Normalize(t *testing.T) {
	w := &WorkOrder{Description: "  lathe  "}
	w.Normalize()
	if w.Kind != KindMaintenance || w.Status != lifecycle.NotStarted || w.Priority != PriorityMedium || w.Description != "lathe" {
		t.Errorf("Normalize() = %+v", w)
	}
}

func TestWorkOrder_ApplyAndClone(t *testing.T) {
	w := NewWorkOrder(KindProduction, "batch 7")
	w.Apply(lifecycle.Transition{From: lifecycle.NotStarted, To: lifecycle.Running, Event: timelog.Event{Action: timelog.Start, At: t0}})
	w.Apply(lifecycle.Transition{
		From:       lifecycle.Running,
		To:         lifecycle.Paused,
		Event:      timelog.Event{Action: timelog.Pause, At: t0.Add(time.Minute)},
		Checkpoint: &lifecycle.Checkpoint{Action: timelog.Pause, Quantity: 10, Unit: "pcs"},
	})
	w.RecomputeStats()

	if w.Status != lifecycle.Paused || len(w.TimeEntries) != 2 || len(w.Checkpoints) != 1 {
		t.Fatalf("after Apply: %+v", w)
	}
	if w.TimeStats.Effective != time.Minute {
		t.Errorf("Effective = %v, want 1m", w.TimeStats.Effective)
	}

	c := w.Clone()
	c.TimeEntries[0].At = t0.Add(time.Hour)
	c.Checkpoints[0].Quantity = 99
	if !w.TimeEntries[0].At.Equal(t0) || w.Checkpoints[0].Quantity != 10 {
		t.Error("Clone shares backing arrays with the original")
	}
}

func TestPrincipal_CanModify(t *testing.T) {
	w := &WorkOrder{OwnerID: "u1"}
	tests := []struct {
		p    Principal
		want bool
	}{
		{Principal{ID: "u1"}, true},
		{Principal{ID: "u2"}, false},
		{Principal{ID: "u2", Admin: true}, true},
		{Principal{}, false},
	}
	for _, tt := range tests {
		if got := tt.p.CanModify(w); got != tt.want {
			t.Errorf("%+v.CanModify = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPartRecord_Record(t *testing.T) {
	p := NewPartRecord(PartUsageEntry{Designation: " bearing 6204 ", Quantity: 2, UnitPrice: 4.5, Supplier: "SKF", InterventionType: InterventionReplacement}, "wo-1", t0)
	p.Record(PartUsageEntry{Designation: "bearing 6204", Quantity: 1, UnitPrice: 5.1, InterventionType: InterventionRepair}, "wo-2", t0.Add(time.Hour))

	if p.Designation != "bearing 6204" {
		t.Errorf("Designation = %q", p.Designation)
	}
	if p.CurrentPrice != 5.1 || p.CurrentSupplier != "SKF" {
		t.Errorf("current = %v/%q, want 5.1/SKF", p.CurrentPrice, p.CurrentSupplier)
	}
	if p.ReplacementCount != 1 || p.RepairCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", p.ReplacementCount, p.RepairCount)
	}
	if len(p.History) != 2 || p.History[1].WorkOrderID != "wo-2" {
		t.Errorf("History = %+v", p.History)
	}
	if !p.CreatedAt.Equal(t0) || !p.UpdatedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("timestamps = %v/%v", p.CreatedAt, p.UpdatedAt)
	}
}

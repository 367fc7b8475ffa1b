package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/workclock/internal/adapters/memory"
	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/internal/ports"
	"github.com/bft-labs/workclock/pkg/lifecycle"
)

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []lifecycle.Status
}

func (m *mockEmitter) OnStateChange(_, current lifecycle.Status, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, current)
}

func (m *mockEmitter) Events() []lifecycle.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]lifecycle.Status{}, m.events...)
}

func newService(f *fixture, p domain.Principal, extra ...Option) *Service {
	return NewService(f.store, ports.StaticIdentity(p), append(f.options(), extra...)...)
}

func TestService_TimerEndToEnd(t *testing.T) {
	f := newFixture()
	emitter := &mockEmitter{}
	svc := newService(f, alice, WithEmitter(emitter))
	ctx := context.Background()

	wo, err := svc.Save(ctx, ticket("noisy compressor"))
	if err != nil {
		t.Fatal(err)
	}
	id := wo.ID

	steps := []struct {
		advance time.Duration
		do      func() (*domain.WorkOrder, error)
		want    lifecycle.Status
	}{
		{0, func() (*domain.WorkOrder, error) { return svc.StartWorkOrder(ctx, wo) }, lifecycle.Running},
		{10 * time.Second, func() (*domain.WorkOrder, error) { return svc.PauseWorkOrder(ctx, id, nil) }, lifecycle.Paused},
		{5 * time.Second, func() (*domain.WorkOrder, error) { return svc.ResumeWorkOrder(ctx, id) }, lifecycle.Running},
		{10 * time.Second, func() (*domain.WorkOrder, error) {
			return svc.StopWorkOrder(ctx, id, &lifecycle.Checkpoint{Note: "bearing replaced"})
		}, lifecycle.Completed},
	}

	for i, step := range steps {
		f.clock.Advance(step.advance)
		got, err := step.do()
		if err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
		if got.Status != step.want {
			t.Fatalf("step %d status = %s, want %s", i, got.Status, step.want)
		}
		if got.SequenceNumber != 1 {
			t.Errorf("step %d sequence = %d, want 1", i, got.SequenceNumber)
		}
	}

	final, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if final.TimeStats.Effective != 20*time.Second || final.TimeStats.Total != 25*time.Second {
		t.Errorf("stats = %+v", final.TimeStats)
	}
	if final.CompletedAt == nil || !final.CompletedAt.Equal(t0.Add(25*time.Second)) {
		t.Errorf("CompletedAt = %v", final.CompletedAt)
	}
	if len(final.Checkpoints) != 1 || final.Checkpoints[0].Note != "bearing replaced" {
		t.Errorf("Checkpoints = %+v", final.Checkpoints)
	}
	if got := emitter.Events(); len(got) != 4 || got[3] != lifecycle.Completed {
		t.Errorf("emitted = %v", got)
	}

	submitted, err := svc.SubmitWorkOrder(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if submitted.Status != lifecycle.Submitted || submitted.SubmittedAt == nil {
		t.Errorf("after submit = %s, %v", submitted.Status, submitted.SubmittedAt)
	}
	if !submitted.CompletedAt.Equal(*final.CompletedAt) {
		t.Errorf("submit moved CompletedAt to %v", submitted.CompletedAt)
	}
}

func TestService_IllegalActionsDoNotWrite(t *testing.T) {
	f := newFixture()
	svc := newService(f, alice)
	ctx := context.Background()

	wo, _ := svc.Save(ctx, ticket("idle"))

	calls := []struct {
		name string
		do   func() (*domain.WorkOrder, error)
	}{
		{"pause", func() (*domain.WorkOrder, error) { return svc.PauseWorkOrder(ctx, wo.ID, nil) }},
		{"resume", func() (*domain.WorkOrder, error) { return svc.ResumeWorkOrder(ctx, wo.ID) }},
		{"stop", func() (*domain.WorkOrder, error) { return svc.StopWorkOrder(ctx, wo.ID, nil) }},
		{"submit", func() (*domain.WorkOrder, error) { return svc.SubmitWorkOrder(ctx, wo.ID) }},
	}
	for _, c := range calls {
		if _, err := c.do(); !errors.Is(err, domain.ErrIllegalTransition) {
			t.Errorf("%s on NotStarted: error = %v, want ErrIllegalTransition", c.name, err)
		}
	}

	if n := f.store.Calls(memory.OpUpdate); n != 0 {
		t.Errorf("illegal actions issued %d updates", n)
	}

	if _, err := svc.StartWorkOrder(ctx, wo); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.StartWorkOrder(ctx, wo); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Errorf("second start error = %v, want ErrIllegalTransition", err)
	}

}

func TestService_RequiresPrincipalAndWorkOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	anon := newService(f, domain.Principal{})
	if _, err := anon.StartWorkOrder(ctx, &domain.WorkOrder{ID: "anything"}); !errors.Is(err, domain.ErrAuthenticationRequired) {
		t.Errorf("anonymous start error = %v", err)
	}
	if _, err := anon.Save(ctx, ticket("x")); !errors.Is(err, domain.ErrAuthenticationRequired) {
		t.Errorf("anonymous save error = %v", err)
	}

	svc := newService(f, alice)
	if _, err := svc.StartWorkOrder(ctx, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("start without work order error = %v, want ErrNotFound", err)
	}

	if n, _ := f.store.Count(ctx, domain.CollectionWorkOrders); n != 0 {
		t.Errorf("store has %d records, want 0", n)
	}
}

func TestService_OtherUsersCannotDriveTimer(t *testing.T) {
	f := newFixture()
	emitter := &mockEmitter{}
	ctx := context.Background()

	wo, _ := newService(f, alice).Save(ctx, ticket("mine"))

	_, err := newService(f, bob, WithEmitter(emitter)).StartWorkOrder(ctx, wo)
	if !errors.Is(err, domain.ErrAuthorizationDenied) {
		t.Fatalf("bob start error = %v, want ErrAuthorizationDenied", err)
	}
	if len(emitter.Events()) != 0 {
		t.Error("denied action emitted a state change")
	}

	if _, err := newService(f, admin).StartWorkOrder(ctx, wo); err != nil {
		t.Errorf("admin start error = %v", err)
	}
}

func TestService_ProductionCheckpoints(t *testing.T) {
	f := newFixture()
	svc := newService(f, alice)
	ctx := context.Background()

	wo, err := svc.Save(ctx, domain.NewWorkOrder(domain.KindProduction, "cut 400 brackets"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.StartWorkOrder(ctx, wo); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(time.Hour)
	_, err = svc.PauseWorkOrder(ctx, wo.ID, nil)
	if !errors.Is(err, domain.ErrValidationFailed) || !errors.Is(err, lifecycle.ErrQuantityRequired) {
		t.Fatalf("pause without quantity error = %v", err)
	}
	got, _ := svc.Get(ctx, wo.ID)
	if got.Status != lifecycle.Running || len(got.TimeEntries) != 1 {
		t.Errorf("rejected checkpoint changed the record: %s, %d entries", got.Status, len(got.TimeEntries))
	}

	paused, err := svc.PauseWorkOrder(ctx, wo.ID, &lifecycle.Checkpoint{Quantity: 120, Unit: "pcs"})
	if err != nil {
		t.Fatal(err)
	}
	if len(paused.Checkpoints) != 1 || paused.Checkpoints[0].Quantity != 120 || !paused.Checkpoints[0].CapturedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("Checkpoints = %+v", paused.Checkpoints)
	}
}

func TestService_StatsAndMine(t *testing.T) {
	f := newFixture()
	svc := newService(f, alice)
	ctx := context.Background()

	wo, _ := svc.Save(ctx, ticket("running"))
	if _, err := svc.StartWorkOrder(ctx, wo); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(90 * time.Second)

	stats, err := svc.Stats(ctx, wo.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Effective != 90*time.Second || !stats.EndTime.IsZero() {
		t.Errorf("live stats = %+v", stats)
	}

	if _, err := newService(f, bob).Save(ctx, ticket("bob's")); err != nil {
		t.Fatal(err)
	}
	mine, err := svc.Mine(ctx)
	if err != nil || len(mine) != 1 || mine[0].ID != wo.ID {
		t.Errorf("Mine() = %d records, %v", len(mine), err)
	}
}

func TestService_StartDraftCreatesRunningRecord(t *testing.T) {
	f := newFixture()
	emitter := &mockEmitter{}
	svc := newService(f, alice, WithEmitter(emitter))
	ctx := context.Background()

	draft := ticket("belt slipping on line 3")
	wo, err := svc.StartWorkOrder(ctx, draft)
	if err != nil {
		t.Fatalf("StartWorkOrder(draft) error = %v", err)
	}
	if draft.ID != "" || draft.Status != lifecycle.NotStarted {
		t.Errorf("draft modified: id %q status %s", draft.ID, draft.Status)
	}
	if wo.ID == "" || wo.OwnerID != "alice" || wo.SequenceNumber != 1 {
		t.Errorf("started = id %q owner %q seq %d", wo.ID, wo.OwnerID, wo.SequenceNumber)
	}
	if wo.Status != lifecycle.Running || len(wo.TimeEntries) != 1 || !wo.TimeEntries[0].At.Equal(t0) {
		t.Errorf("started = %s with %d entries", wo.Status, len(wo.TimeEntries))
	}
	if f.store.Calls(memory.OpCreate) != 1 || f.store.Calls(memory.OpUpdate) != 0 {
		t.Errorf("writes = %d creates, %d updates; want a single create",
			f.store.Calls(memory.OpCreate), f.store.Calls(memory.OpUpdate))
	}
	if got := emitter.Events(); len(got) != 1 || got[0] != lifecycle.Running {
		t.Errorf("emitted = %v", got)
	}

	stored, err := svc.Get(ctx, wo.ID)
	if err != nil || stored.Status != lifecycle.Running {
		t.Fatalf("stored = %+v, %v", stored, err)
	}

	stopped := ticket("already done")
	stopped.Status = lifecycle.Completed
	if _, err := svc.StartWorkOrder(ctx, stopped); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Errorf("start completed draft error = %v, want ErrIllegalTransition", err)
	}
}

func TestService_FailedSaveDoesNotNotify(t *testing.T) {
	f := newFixture()
	emitter := &mockEmitter{}
	svc := newService(f, alice, WithEmitter(emitter))
	ctx := context.Background()

	wo, err := svc.Save(ctx, ticket("pump seal"))
	if err != nil {
		t.Fatal(err)
	}

	f.store.FailNext(memory.OpCommit, 1, errors.New("disk full"))
	if _, err := svc.StartWorkOrder(ctx, wo); !errors.Is(err, domain.ErrPermanentStore) {
		t.Fatalf("StartWorkOrder() error = %v, want ErrPermanentStore", err)
	}
	if got := emitter.Events(); len(got) != 0 {
		t.Errorf("emitted %v for an unsaved transition", got)
	}
	if n := f.logger.Count("state transition"); n != 0 {
		t.Errorf("logged %d state transitions for an unsaved transition", n)
	}
	stored, _ := svc.Get(ctx, wo.ID)
	if stored.Status != lifecycle.NotStarted {
		t.Errorf("stored status = %s, want NotStarted", stored.Status)
	}

	if _, err := svc.StartWorkOrder(ctx, wo); err != nil {
		t.Fatal(err)
	}
	if got := emitter.Events(); len(got) != 1 || got[0] != lifecycle.Running {
		t.Errorf("emitted after successful start = %v", got)
	}
}

package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/workclock/internal/adapters/memory"
	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/internal/ports"
	"github.com/bft-labs/workclock/pkg/clock"
	"github.com/bft-labs/workclock/pkg/log"
)

var t0 = time.Date(2026, 4, 7, 9, 0, 0, 0, time.UTC)

var (
	alice = domain.Principal{ID: "alice", Name: "Alice"}
	bob   = domain.Principal{ID: "bob", Name: "Bob"}
	admin = domain.Principal{ID: "root", Admin: true}
)

// plainStore hides the optional Transactor and Counter interfaces of the
// wrapped store.
type plainStore struct {
	ports.DocumentStore
}

// recordingLogger keeps every message for assertions.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingLogger) record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recordingLogger) Debug(msg string, _ ...log.Field) { r.record(msg) }
func (r *recordingLogger) Info(msg string, _ ...log.Field)  { r.record(msg) }
func (r *recordingLogger) Warn(msg string, _ ...log.Field)  { r.record(msg) }
func (r *recordingLogger) Error(msg string, _ ...log.Field) { r.record(msg) }

func (r *recordingLogger) Count(msg string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m == msg {
			n++
		}
	}
	return n
}

// recordingMetrics counts observations per op.
type recordingMetrics struct {
	mu       sync.Mutex
	observed map[string]int
	failed   map[string]int
	retries  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{observed: map[string]int{}, failed: map[string]int{}, retries: map[string]int{}}
}

func (m *recordingMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed[op]++
	if !success {
		m.failed[op]++
	}
}

func (m *recordingMetrics) Retry(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries[op]++
}

type fixture struct {
	store   *memory.Store
	clock   *clock.FakeClock
	logger  *recordingLogger
	metrics *recordingMetrics
}

func newFixture() *fixture {
	return &fixture{
		store:   memory.New(),
		clock:   clock.Fake(t0),
		logger:  &recordingLogger{},
		metrics: newRecordingMetrics(),
	}
}

func (f *fixture) options() []Option {
	return []Option{WithClock(f.clock), WithLogger(f.logger), WithMetrics(f.metrics)}
}

// coordinator returns a coordinator over the transactional memory store,
// or over a plain view of it when plain is set.
func (f *fixture) coordinator(plain bool) *Coordinator {
	if plain {
		return NewCoordinator(plainStore{f.store}, f.options()...)
	}
	return NewCoordinator(f.store, f.options()...)
}

func ticket(desc string) *domain.WorkOrder {
	return domain.NewWorkOrder(domain.KindMaintenance, desc)
}

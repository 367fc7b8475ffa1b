// Package memory provides an in-process document store with fault
// injection, used by tests and by the CLI when no store is configured.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/internal/ports"
)

// Op names a store call for fault injection.
type Op string

const (
	OpGet       Op = "get"
	OpQuery     Op = "query"
	OpCount     Op = "count"
	OpCreate    Op = "create"
	OpUpdate    Op = "update"
	OpIncrement Op = "increment"
	OpCommit    Op = "commit"
)

// Store is a DocumentStore kept in memory. It also implements
// ports.Transactor and ports.Counter.
type Store struct {
	mu     sync.Mutex
	data   *state
	faults *faults
	newID  func() string
}

type state struct {
	collections map[string]*collection
	counters    map[string]int64
}

type collection struct {
	order []string
	docs  map[string][]byte
}

// New creates an empty store.
func New() *Store {
	return &Store{
		data:   newState(),
		faults: &faults{pending: map[Op][]error{}, calls: map[Op]int{}},
		newID:  newID,
	}
}

func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// FailNext makes the next n calls of op fail with err. Use domain.Transient
// to simulate retryable failures.
func (s *Store) FailNext(op Op, n int, err error) {
	s.faults.add(op, n, err)
}

// Calls returns how many times op was attempted, including failed calls.
func (s *Store) Calls(op Op) int {
	return s.faults.count(op)
}

// Get implements ports.DocumentStore.
func (s *Store) Get(ctx context.Context, coll, id string) (ports.Document, error) {
	if err := s.faults.take(OpGet); err != nil {
		return ports.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.get(coll, id)
}

// Query implements ports.DocumentStore.
func (s *Store) Query(ctx context.Context, coll string, filter ports.Filter) ([]ports.Document, error) {
	if err := s.faults.take(OpQuery); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.query(coll, filter)
}

// Count implements ports.DocumentStore.
func (s *Store) Count(ctx context.Context, coll string) (int64, error) {
	if err := s.faults.take(OpCount); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.data.collections[coll]
	if c == nil {
		return 0, nil
	}
	return int64(len(c.order)), nil
}

// Create implements ports.DocumentStore.
func (s *Store) Create(ctx context.Context, coll string, data []byte) (string, error) {
	if err := s.faults.take(OpCreate); err != nil {
		return "", err
	}
	if !json.Valid(data) {
		return "", domain.E(domain.ErrPermanentStore, "memory create", "document is not valid JSON")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	c := s.data.collection(coll)
	c.order = append(c.order, id)
	c.docs[id] = bytes.Clone(data)
	return id, nil
}

// Update implements ports.DocumentStore.
func (s *Store) Update(ctx context.Context, coll, id string, data []byte) error {
	if err := s.faults.take(OpUpdate); err != nil {
		return err
	}
	if !json.Valid(data) {
		return domain.E(domain.ErrPermanentStore, "memory update", "document is not valid JSON")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.data.collections[coll]
	if c == nil || c.docs[id] == nil {
		return domain.E(domain.ErrNotFound, "memory update", fmt.Sprintf("%s/%s", coll, id))
	}
	c.docs[id] = bytes.Clone(data)
	return nil
}

// Increment implements ports.Counter.
func (s *Store) Increment(ctx context.Context, name string, seed func(ctx context.Context) (int64, error)) (int64, error) {
	if err := s.faults.take(OpIncrement); err != nil {
		return 0, err
	}
	s.mu.Lock()
	_, ok := s.data.counters[name]
	s.mu.Unlock()

	var seeded int64
	if !ok && seed != nil {
		n, err := seed(ctx)
		if err != nil {
			return 0, err
		}
		seeded = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data.counters[name]
	if !ok {
		cur = seeded
	}
	cur++
	s.data.counters[name] = cur
	return cur, nil
}

// RunInTx implements ports.Transactor. fn sees a private copy of the data
// which replaces the store contents only if fn and the commit succeed.
// Other callers block until the transaction ends.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ports.DocumentStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{data: s.data.clone(), faults: s.faults, newID: s.newID}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := s.faults.take(OpCommit); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func newState() *state {
	return &state{collections: map[string]*collection{}, counters: map[string]int64{}}
}

func (st *state) collection(name string) *collection {
	c := st.collections[name]
	if c == nil {
		c = &collection{docs: map[string][]byte{}}
		st.collections[name] = c
	}
	return c
}

func (st *state) get(coll, id string) (ports.Document, error) {
	c := st.collections[coll]
	if c == nil || c.docs[id] == nil {
		return ports.Document{}, domain.E(domain.ErrNotFound, "memory get", fmt.Sprintf("%s/%s", coll, id))
	}
	return ports.Document{ID: id, Data: bytes.Clone(c.docs[id])}, nil
}

func (st *state) query(coll string, filter ports.Filter) ([]ports.Document, error) {
	c := st.collections[coll]
	if c == nil {
		return nil, nil
	}
	var out []ports.Document
	for _, id := range c.order {
		ok, err := filter.Match(c.docs[id])
		if err != nil {
			return nil, domain.Wrap(domain.ErrPermanentStore, "memory query", err)
		}
		if ok {
			out = append(out, ports.Document{ID: id, Data: bytes.Clone(c.docs[id])})
		}
	}
	return out, nil
}

func (st *state) clone() *state {
	out := newState()
	for name, c := range st.collections {
		cc := &collection{order: append([]string(nil), c.order...), docs: make(map[string][]byte, len(c.docs))}
		for id, d := range c.docs {
			cc.docs[id] = d
		}
		out.collections[name] = cc
	}
	for k, v := range st.counters {
		out.counters[k] = v
	}
	return out
}

type faults struct {
	mu      sync.Mutex
	pending map[Op][]error
	calls   map[Op]int
}

func (f *faults) add(op Op, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.pending[op] = append(f.pending[op], err)
	}
}

func (f *faults) take(op Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	q := f.pending[op]
	if len(q) == 0 {
		return nil
	}
	f.pending[op] = q[1:]
	return q[0]
}

func (f *faults) count(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

package app

import (
	"context"

	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/internal/ports"
)

const sequenceCounter = "work_order_sequence"

// SequenceAllocator hands out human-facing work-order numbers.
//
// Against a plain DocumentStore the next number is the collection count
// plus one, which is not atomic with the write that follows: two concurrent
// creations may receive the same number. Stores implementing ports.Counter
// allocate atomically instead, seeded from the count on first use.
type SequenceAllocator struct {
	store      ports.DocumentStore
	collection string
}

// NewSequenceAllocator creates an allocator for the work-order collection.
func NewSequenceAllocator(store ports.DocumentStore) *SequenceAllocator {
	return &SequenceAllocator{store: store, collection: domain.CollectionWorkOrders}
}

// Atomic reports whether allocation uses an atomic counter.
func (a *SequenceAllocator) Atomic() bool {
	_, ok := a.store.(ports.Counter)
	return ok
}

// Allocate returns the next sequence number.
func (a *SequenceAllocator) Allocate(ctx context.Context) (int64, error) {
	if c, ok := a.store.(ports.Counter); ok {
		return c.Increment(ctx, sequenceCounter, a.count)
	}
	n, err := a.count(ctx)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

func (a *SequenceAllocator) count(ctx context.Context) (int64, error) {
	return a.store.Count(ctx, a.collection)
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/internal/ports"
	"github.com/bft-labs/workclock/pkg/lifecycle"
	"github.com/bft-labs/workclock/pkg/log"
	"github.com/bft-labs/workclock/pkg/retry"
)

// Coordinator persists work orders. It assigns sequence numbers, enforces
// ownership, recomputes statistics, propagates part usage to part records
// and retries transient store failures.
type Coordinator struct {
	store ports.DocumentStore
	opts  options
}

// NewCoordinator creates a coordinator over store.
func NewCoordinator(store ports.DocumentStore, opts ...Option) *Coordinator {
	o := buildOptions(opts)
	o.policy.Clock = o.clock
	o.policy.Retryable = domain.IsTransient
	return &Coordinator{
		store: store,
		opts:  o,
	}
}

// Save creates record when it has no id and updates it otherwise, returning
// the record id. record itself is not modified.
func (c *Coordinator) Save(ctx context.Context, principal domain.Principal, record *domain.WorkOrder) (string, error) {
	saved, err := c.save(ctx, principal, record)
	if err != nil {
		return "", err
	}
	return saved.ID, nil
}

// Get loads a work order.
func (c *Coordinator) Get(ctx context.Context, id string) (*domain.WorkOrder, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.E(domain.ErrNotFound, "get work order", "no work order id")
	}
	var doc ports.Document
	err := c.retry(ctx, "get", func(ctx context.Context) error {
		var err error
		doc, err = c.store.Get(ctx, domain.CollectionWorkOrders, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return decodeWorkOrder(doc)
}

// ListByOwner returns the work orders created by ownerID.
func (c *Coordinator) ListByOwner(ctx context.Context, ownerID string) ([]*domain.WorkOrder, error) {
	var docs []ports.Document
	err := c.retry(ctx, "list", func(ctx context.Context) error {
		var err error
		docs, err = c.store.Query(ctx, domain.CollectionWorkOrders, ports.Filter{Field: "owner_id", Value: ownerID})
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.WorkOrder, 0, len(docs))
	for _, d := range docs {
		wo, err := decodeWorkOrder(d)
		if err != nil {
			return nil, err
		}
		out = append(out, wo)
	}
	return out, nil
}

func (c *Coordinator) save(ctx context.Context, principal domain.Principal, record *domain.WorkOrder) (saved *domain.WorkOrder, err error) {
	start := time.Now()
	op := "create"
	if record != nil && record.ID != "" {
		op = "update"
	}
	defer func() {
		c.opts.metrics.Observe(ctx, op, err == nil, time.Since(start))
	}()

	if principal.ID == "" {
		return nil, domain.E(domain.ErrAuthenticationRequired, "save work order", "no principal")
	}
	if record == nil {
		return nil, domain.E(domain.ErrValidationFailed, "save work order", "no record")
	}

	wo := record.Clone()
	wo.Normalize()
	if err := wo.Validate(); err != nil {
		return nil, err
	}

	if wo.ID == "" {
		return c.create(ctx, principal, wo)
	}
	return c.update(ctx, principal, wo)
}

func (c *Coordinator) create(ctx context.Context, principal domain.Principal, wo *domain.WorkOrder) (*domain.WorkOrder, error) {
	now := c.opts.clock.Now()
	wo.OwnerID = principal.ID
	wo.CreatedAt = now
	wo.UpdatedAt = now
	wo.CompletedAt = nil
	wo.SubmittedAt = nil
	carryRecorded(wo, nil)
	wo.RecomputeStats()
	stampTerminal(wo, lifecycle.NotStarted, now)

	saved, err := c.persist(ctx, "create", wo)
	if err != nil {
		return nil, err
	}
	c.opts.logger.Info("work order created",
		log.String("id", saved.ID),
		log.Int64("sequence", saved.SequenceNumber),
		log.String("owner", saved.OwnerID),
		log.String("kind", string(saved.Kind)),
	)
	return saved, nil
}

func (c *Coordinator) update(ctx context.Context, principal domain.Principal, wo *domain.WorkOrder) (*domain.WorkOrder, error) {
	existing, err := c.Get(ctx, wo.ID)
	if err != nil {
		return nil, err
	}
	if !principal.CanModify(existing) {
		c.opts.logger.Warn("work order update denied",
			log.String("id", existing.ID),
			log.String("owner", existing.OwnerID),
			log.String("principal", principal.ID),
		)
		return nil, domain.E(domain.ErrAuthorizationDenied, "update work order",
			fmt.Sprintf("%s is not the owner of %s", principal.ID, existing.ID))
	}

	if !terminalChangeAllowed(existing.Status, wo.Status) {
		return nil, domain.E(domain.ErrIllegalTransition, "update work order",
			fmt.Sprintf("%s cannot move from %s to %s", existing.ID, existing.Status, wo.Status))
	}

	now := c.opts.clock.Now()
	wo.OwnerID = existing.OwnerID
	wo.CreatedAt = existing.CreatedAt
	wo.SequenceNumber = existing.SequenceNumber
	wo.CompletedAt = existing.CompletedAt
	wo.SubmittedAt = existing.SubmittedAt
	carryRecorded(wo, existing)
	wo.RecomputeStats()
	wo.UpdatedAt = now
	stampTerminal(wo, existing.Status, now)

	saved, err := c.persist(ctx, "update", wo)
	if err != nil {
		return nil, err
	}
	c.opts.logger.Debug("work order updated",
		log.String("id", saved.ID),
		log.String("status", string(saved.Status)),
		log.Duration("effective", saved.TimeStats.Effective),
	)
	return saved, nil
}

// persist writes wo and its pending part usage. With a transactional store
// both happen in one transaction retried as a whole; otherwise every store
// call is retried on its own and part records are written first.
func (c *Coordinator) persist(ctx context.Context, op string, wo *domain.WorkOrder) (*domain.WorkOrder, error) {
	if tx, ok := c.store.(ports.Transactor); ok {
		var saved *domain.WorkOrder
		err := c.retry(ctx, op, func(ctx context.Context) error {
			return tx.RunInTx(ctx, func(ctx context.Context, store ports.DocumentStore) error {
				var err error
				saved, err = c.write(ctx, store, wo, direct)
				return err
			})
		})
		if err != nil {
			return nil, err
		}
		return saved, nil
	}
	return c.write(ctx, c.store, wo, c.retry)
}

type callFunc func(ctx context.Context, op string, fn func(ctx context.Context) error) error

func direct(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// write stores one attempt's worth of changes on a private copy of wo, so a
// rolled back attempt leaves no recorded flags behind.
func (c *Coordinator) write(ctx context.Context, store ports.DocumentStore, in *domain.WorkOrder, call callFunc) (*domain.WorkOrder, error) {
	wo := in.Clone()

	if wo.ID == "" {
		if wo.SequenceNumber == 0 {
			// Inside a transaction the counter rolls back with the write,
			// so a failed create leaves no gap.
			seq := NewSequenceAllocator(store)
			err := call(ctx, "allocate sequence", func(ctx context.Context) error {
				n, err := seq.Allocate(ctx)
				wo.SequenceNumber = n
				return err
			})
			if err != nil {
				return nil, err
			}
		}
		data, err := json.Marshal(wo)
		if err != nil {
			return nil, domain.Wrap(domain.ErrPermanentStore, "encode work order", err)
		}
		err = call(ctx, "create", func(ctx context.Context) error {
			id, err := store.Create(ctx, domain.CollectionWorkOrders, data)
			wo.ID = id
			return err
		})
		if err != nil {
			return nil, err
		}
		if !hasPendingParts(wo) {
			return wo, nil
		}
		// History entries need the id, so parts follow the first write.
	}

	if err := c.recordParts(ctx, store, wo, call); err != nil {
		return nil, err
	}

	data, err := json.Marshal(wo)
	if err != nil {
		return nil, domain.Wrap(domain.ErrPermanentStore, "encode work order", err)
	}
	err = call(ctx, "update", func(ctx context.Context) error {
		return store.Update(ctx, domain.CollectionWorkOrders, wo.ID, data)
	})
	if err != nil {
		return nil, err
	}
	return wo, nil
}

// recordParts propagates every pending part usage entry to its PartRecord.
func (c *Coordinator) recordParts(ctx context.Context, store ports.DocumentStore, wo *domain.WorkOrder, call callFunc) error {
	now := c.opts.clock.Now()
	for i := range wo.PartUsage {
		entry := &wo.PartUsage[i]
		if entry.IsEmpty() || entry.Recorded {
			continue
		}
		designation := strings.TrimSpace(entry.Designation)

		var docs []ports.Document
		err := call(ctx, "query part", func(ctx context.Context) error {
			var err error
			docs, err = store.Query(ctx, domain.CollectionParts, ports.Filter{Field: "designation", Value: designation})
			return err
		})
		if err != nil {
			return err
		}

		if len(docs) == 0 {
			part := domain.NewPartRecord(*entry, wo.ID, now)
			data, err := json.Marshal(part)
			if err != nil {
				return domain.Wrap(domain.ErrPermanentStore, "encode part", err)
			}
			if err := call(ctx, "create part", func(ctx context.Context) error {
				_, err := store.Create(ctx, domain.CollectionParts, data)
				return err
			}); err != nil {
				return err
			}
		} else {
			var part domain.PartRecord
			if err := json.Unmarshal(docs[0].Data, &part); err != nil {
				return domain.Wrap(domain.ErrPermanentStore, "decode part", err)
			}
			part.ID = docs[0].ID
			part.Record(*entry, wo.ID, now)
			data, err := json.Marshal(part)
			if err != nil {
				return domain.Wrap(domain.ErrPermanentStore, "encode part", err)
			}
			if err := call(ctx, "update part", func(ctx context.Context) error {
				return store.Update(ctx, domain.CollectionParts, part.ID, data)
			}); err != nil {
				return err
			}
		}

		entry.Recorded = true
		c.opts.logger.Debug("part usage recorded",
			log.String("work_order", wo.ID),
			log.String("designation", designation),
			log.Int("quantity", entry.Quantity),
			log.String("intervention", string(entry.InterventionType)),
		)
	}
	return nil
}

// retry runs fn under the store policy and classifies the outcome.
func (c *Coordinator) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	p := c.opts.policy
	p.OnRetry = func(attempt int, wait time.Duration, err error) {
		c.opts.metrics.Retry(op)
		c.opts.logger.Warn("transient store error, retrying",
			log.String("op", op),
			log.Int("attempt", attempt),
			log.Duration("wait", wait),
			log.Err(err),
		)
	}
	if err := p.Do(ctx, fn); err != nil {
		return c.classify(op, err)
	}
	return nil
}

// classify maps store failures onto the error kinds callers see. Exhausted
// retries and unclassified errors become PermanentStoreError.
func (c *Coordinator) classify(op string, err error) error {
	var exhausted *retry.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		c.opts.logger.Error("store retries exhausted",
			log.String("op", op),
			log.Int("attempts", exhausted.Attempts),
			log.Err(exhausted.Last),
		)
		return domain.Wrap(domain.ErrPermanentStore, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case domain.IsTransient(err), domain.KindOf(err) == nil:
		return domain.Wrap(domain.ErrPermanentStore, op, err)
	default:
		return err
	}
}

func decodeWorkOrder(doc ports.Document) (*domain.WorkOrder, error) {
	var wo domain.WorkOrder
	if err := json.Unmarshal(doc.Data, &wo); err != nil {
		return nil, domain.Wrap(domain.ErrPermanentStore, "decode work order "+doc.ID, err)
	}
	wo.ID = doc.ID
	return &wo, nil
}

// stampTerminal sets completedAt and submittedAt when wo enters those
// statuses.
func stampTerminal(wo *domain.WorkOrder, previous lifecycle.Status, now time.Time) {
	if wo.Status == lifecycle.Completed && previous != lifecycle.Completed {
		t := now
		wo.CompletedAt = &t
	}
	if wo.Status == lifecycle.Submitted && previous != lifecycle.Submitted {
		t := now
		wo.SubmittedAt = &t
		if wo.CompletedAt == nil {
			c := now
			wo.CompletedAt = &c
		}
	}
}

// terminalChangeAllowed reports whether a save may move a work order from
// one status to another. Completed and Submitted only ever advance to
// Submitted.
func terminalChangeAllowed(from, to lifecycle.Status) bool {
	if !lifecycle.IsTerminal(from) || from == to {
		return true
	}
	return from == lifecycle.Completed && to == lifecycle.Submitted
}

// carryRecorded derives the recorded flag of every entry from the stored
// record: an entry counts as propagated only when the stored entry at the
// same position was propagated for the same designation. Flags sent by the
// caller are ignored. existing is nil on create.
func carryRecorded(wo, existing *domain.WorkOrder) {
	for i := range wo.PartUsage {
		entry := &wo.PartUsage[i]
		entry.Recorded = false
		if existing == nil || i >= len(existing.PartUsage) {
			continue
		}
		prev := existing.PartUsage[i]
		if prev.Recorded && strings.TrimSpace(prev.Designation) == strings.TrimSpace(entry.Designation) {
			entry.Recorded = true
		}
	}
}

func hasPendingParts(wo *domain.WorkOrder) bool {
	for _, p := range wo.PartUsage {
		if !p.IsEmpty() && !p.Recorded {
			return true
		}
	}
	return false
}

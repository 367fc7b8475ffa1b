package app

import (
	"context"
	"errors"

	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/internal/ports"
	"github.com/bft-labs/workclock/pkg/lifecycle"
	"github.com/bft-labs/workclock/pkg/log"
	"github.com/bft-labs/workclock/pkg/timelog"
)

// Service exposes the work-order operations: timer actions, saves and
// reads, each resolved against the current principal.
type Service struct {
	coord    *Coordinator
	identity ports.IdentityProvider
	opts     options
}

// NewService creates a service over store. identity resolves the acting
// principal for every call.
func NewService(store ports.DocumentStore, identity ports.IdentityProvider, opts ...Option) *Service {
	return &Service{
		coord:    NewCoordinator(store, opts...),
		identity: identity,
		opts:     buildOptions(opts),
	}
}

// Coordinator returns the persistence coordinator used by the service.
func (s *Service) Coordinator() *Coordinator {
	return s.coord
}

// Save creates or updates a work order on behalf of the current principal.
func (s *Service) Save(ctx context.Context, wo *domain.WorkOrder) (*domain.WorkOrder, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}
	return s.coord.save(ctx, p, wo)
}

// Get returns a work order by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.WorkOrder, error) {
	return s.coord.Get(ctx, id)
}

// Mine returns the work orders owned by the current principal.
func (s *Service) Mine(ctx context.Context) ([]*domain.WorkOrder, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}
	return s.coord.ListByOwner(ctx, p.ID)
}

// Stats returns the statistics of a work order, counting a running timer
// up to now.
func (s *Service) Stats(ctx context.Context, id string) (timelog.Stats, error) {
	wo, err := s.coord.Get(ctx, id)
	if err != nil {
		return timelog.Stats{}, err
	}
	return timelog.Live(wo.TimeEntries, s.opts.clock.Now()), nil
}

// StartWorkOrder starts the timer of a NotStarted work order. A draft
// without an id is created already running, owned by the current
// principal, in a single save. For a stored work order only draft.ID is
// read; field edits go through Save.
func (s *Service) StartWorkOrder(ctx context.Context, draft *domain.WorkOrder) (*domain.WorkOrder, error) {
	if draft != nil && draft.ID == "" {
		return s.startDraft(ctx, draft)
	}
	id := ""
	if draft != nil {
		id = draft.ID
	}
	return s.fire(ctx, id, timelog.Start, nil)
}

// PauseWorkOrder pauses a running timer. cp carries the checkpoint payload
// the work order's variant asks for; it may be nil for maintenance tickets.
func (s *Service) PauseWorkOrder(ctx context.Context, id string, cp *lifecycle.Checkpoint) (*domain.WorkOrder, error) {
	return s.fire(ctx, id, timelog.Pause, cp)
}

// ResumeWorkOrder resumes a paused timer.
func (s *Service) ResumeWorkOrder(ctx context.Context, id string) (*domain.WorkOrder, error) {
	return s.fire(ctx, id, timelog.Resume, nil)
}

// StopWorkOrder stops the timer and completes the work order.
func (s *Service) StopWorkOrder(ctx context.Context, id string, cp *lifecycle.Checkpoint) (*domain.WorkOrder, error) {
	return s.fire(ctx, id, timelog.Stop, cp)
}

// SubmitWorkOrder hands a completed work order over for review.
func (s *Service) SubmitWorkOrder(ctx context.Context, id string) (*domain.WorkOrder, error) {
	const op = "submit work order"
	p, wo, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	m := lifecycle.NewMachine(wo.Variant(), s.opts.logger, s.opts.emitter)
	tr, err := m.Submit(wo.Status)
	if err != nil {
		return nil, domain.Wrap(domain.ErrIllegalTransition, op, err)
	}
	return s.commit(ctx, p, m, wo, tr)
}

func (s *Service) startDraft(ctx context.Context, draft *domain.WorkOrder) (*domain.WorkOrder, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}
	wo := draft.Clone()
	wo.Normalize()
	return s.transition(ctx, p, wo, timelog.Start, nil)
}

func (s *Service) fire(ctx context.Context, id string, action timelog.Action, cp *lifecycle.Checkpoint) (*domain.WorkOrder, error) {
	p, wo, err := s.load(ctx, string(action)+" work order", id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, p, wo, action, cp)
}

// transition validates action on wo, applies it and stores the result.
func (s *Service) transition(ctx context.Context, p domain.Principal, wo *domain.WorkOrder, action timelog.Action, cp *lifecycle.Checkpoint) (*domain.WorkOrder, error) {
	op := string(action) + " work order"
	m := lifecycle.NewMachine(wo.Variant(), s.opts.logger, s.opts.emitter)
	tr, err := m.Fire(ctx, lifecycle.Request{
		Status:  wo.Status,
		Entries: wo.TimeEntries,
		Action:  action,
		At:      s.opts.clock.Now(),
		Payload: cp,
	})
	switch {
	case errors.Is(err, lifecycle.ErrCheckpointRejected):
		return nil, domain.Wrap(domain.ErrValidationFailed, op, err)
	case err != nil:
		return nil, domain.Wrap(domain.ErrIllegalTransition, op, err)
	}
	return s.commit(ctx, p, m, wo, tr)
}

// commit applies tr, saves wo and announces the transition once stored.
func (s *Service) commit(ctx context.Context, p domain.Principal, m *lifecycle.Machine, wo *domain.WorkOrder, tr lifecycle.Transition) (*domain.WorkOrder, error) {
	wo.Apply(tr)
	saved, err := s.coord.save(ctx, p, wo)
	if err != nil {
		action := lifecycle.Submit
		if tr.HasEvent() {
			action = string(tr.Event.Action)
		}
		s.opts.logger.Error("timer action not saved",
			log.String("id", wo.ID),
			log.String("action", action),
			log.Err(err),
		)
		return nil, err
	}
	m.Notify(tr, p.ID)
	return saved, nil
}

// load resolves the principal and the work order, and checks the principal
// may modify it before any transition runs.
func (s *Service) load(ctx context.Context, op, id string) (domain.Principal, *domain.WorkOrder, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return domain.Principal{}, nil, err
	}
	if id == "" {
		return domain.Principal{}, nil, domain.E(domain.ErrNotFound, op, "no active work order")
	}
	wo, err := s.coord.Get(ctx, id)
	if err != nil {
		return domain.Principal{}, nil, err
	}
	if !p.CanModify(wo) {
		return domain.Principal{}, nil, domain.E(domain.ErrAuthorizationDenied, op, p.ID+" is not the owner of "+id)
	}
	return p, wo, nil
}

func (s *Service) principal(ctx context.Context) (domain.Principal, error) {
	if s.identity == nil {
		return domain.Principal{}, domain.E(domain.ErrAuthenticationRequired, "identity", "no identity provider")
	}
	p, err := s.identity.Current(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrAuthenticationRequired) {
			return domain.Principal{}, err
		}
		return domain.Principal{}, domain.Wrap(domain.ErrAuthenticationRequired, "identity", err)
	}
	if p.ID == "" {
		return domain.Principal{}, domain.E(domain.ErrAuthenticationRequired, "identity", "empty principal")
	}
	return p, nil
}

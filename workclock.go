// Package workclock tracks time spent on work orders.
//
// Example usage:
//
//	svc := workclock.NewService(store, workclock.StaticIdentity{ID: "alice"})
//	wo, err := svc.StartWorkOrder(ctx, workclock.NewWorkOrder(workclock.KindMaintenance, "Replace belt"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	...
//	wo, err = svc.StopWorkOrder(ctx, wo.ID, nil)
//	fmt.Println(wo.TimeStats.Effective)
package workclock

import (
	"github.com/bft-labs/workclock/internal/app"
	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/internal/ports"
	"github.com/bft-labs/workclock/pkg/lifecycle"
	"github.com/bft-labs/workclock/pkg/timelog"
)

// WorkOrder is a unit of work whose time is tracked.
type WorkOrder = domain.WorkOrder

// Principal is the user acting on work orders.
type Principal = domain.Principal

// Service exposes the timer actions and persistence operations.
type Service = app.Service

// Option configures a Service.
type Option = app.Option

// Stats is derived from a work order's time entries.
type Stats = timelog.Stats

// TimeLog is the ordered list of timer events of a work order.
type TimeLog = timelog.Log

// DocumentStore persists work orders and part records.
type DocumentStore = ports.DocumentStore

// IdentityProvider resolves the acting principal.
type IdentityProvider = ports.IdentityProvider

// StaticIdentity always acts as the same principal.
type StaticIdentity = ports.StaticIdentity

// Checkpoint is the payload captured when a timer pauses or stops.
type Checkpoint = lifecycle.Checkpoint

// Kinds of work order.
const (
	KindMaintenance = domain.KindMaintenance
	KindProduction  = domain.KindProduction
)

// Error kinds, checked with errors.Is.
var (
	ErrAuthenticationRequired = domain.ErrAuthenticationRequired
	ErrAuthorizationDenied    = domain.ErrAuthorizationDenied
	ErrNotFound               = domain.ErrNotFound
	ErrValidationFailed       = domain.ErrValidationFailed
	ErrIllegalTransition      = domain.ErrIllegalTransition
	ErrTransientStore         = domain.ErrTransientStore
	ErrPermanentStore         = domain.ErrPermanentStore
)

// Options re-exported from the application layer.
var (
	WithClock       = app.WithClock
	WithLogger      = app.WithLogger
	WithMetrics     = app.WithMetrics
	WithRetryPolicy = app.WithRetryPolicy
	WithEmitter     = app.WithEmitter
)

// NewService creates a service persisting to store and acting as the
// principal resolved by identity.
func NewService(store DocumentStore, identity IdentityProvider, opts ...Option) *Service {
	return app.NewService(store, identity, opts...)
}

// NewWorkOrder returns an unsaved work order in NotStarted.
func NewWorkOrder(kind domain.Kind, description string) *WorkOrder {
	return domain.NewWorkOrder(kind, description)
}

// ComputeStats derives statistics from a time log. It is pure and
// deterministic.
func ComputeStats(entries TimeLog) Stats {
	return timelog.Compute(entries)
}

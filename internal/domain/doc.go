// Package domain contains the core entities and error kinds for workclock.
//
// This package is the innermost layer. It has no dependencies on storage,
// transport or logging and contains only business rules.
//
// # Entities
//
//   - [WorkOrder]: a maintenance ticket or production task with its timer history
//   - [PartUsageEntry]: a part consumed by a work order
//   - [PartRecord]: the inventory record updated from part usage
//   - [Principal]: the authenticated user acting on work orders
//
// # Errors
//
// Every failure surfaced by the application layer carries one of the
// sentinel kinds declared in errors.go and can be checked with errors.Is.
package domain

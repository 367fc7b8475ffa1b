// Package ports defines the interfaces that connect the application layer
// to infrastructure adapters.
//
// # Port Interfaces
//
//   - [DocumentStore]: JSON documents grouped in collections
//   - [Transactor]: optional, runs several store calls atomically
//   - [Counter]: optional, atomic named counters
//   - [IdentityProvider]: resolves the acting principal
//   - [Metrics]: records operation outcomes
//   - [Logger]: structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with memory,
// file system, SQLite, Postgres and Prometheus backends.
//
// Store adapters classify their failures: errors worth retrying are marked
// with domain.Transient, missing documents carry domain.ErrNotFound.
package ports

// Package log provides the logging abstraction used across workclock.
//
// Components never call a logging library directly. They accept a Logger
// and emit structured fields; the CLI wires a zerolog-backed adapter and
// library callers get a no-op logger unless they supply their own.
//
// # Usage
//
//	logger := log.NewConsoleLogger(os.Stderr, "info")
//	logger.Info("work order saved",
//	    log.String("id", id),
//	    log.Int("attempts", 2),
//	)
//
// Use the no-op logger in tests:
//
//	logger := log.NewNoopLogger()
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log

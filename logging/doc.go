// Package logging provides a minimal logging interface and adapters for fabricsync.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the resolver, orchestrator and workflow use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - FabricLogger with artifact / operation scoped attributes
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	sync, err := fabricsync.New(manager, prompter, workspace, func(o *fabricsync.Options) {
//		o.Logger = logger
//	})
package logging

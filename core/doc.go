// Package core provides the foundational domain types and collaborator
// contracts used by fabricsync. It defines:
//
//   - Artifacts and item definitions (the remote, canonical content of an item)
//   - Persisted settings (folder mappings, workspaces, tenant, environment)
//   - Narrow interfaces for the external collaborators the reconciliation
//     pipeline consumes: artifact manager, file system, prompter, workspace
//     host, settings storage, configuration and progress reporting
//   - The error taxonomy (user cancellation, remote failure, operation failure)
//
// The package intentionally keeps implementation concerns (HTTP transport,
// disk access, terminal prompts) out of scope, exposing small interfaces so
// callers can substitute fakes in tests or editor specific hosts in production.
package core

// Package artifact contains an in-process implementation of
// core.ArtifactManager and core.DefinitionPublisher.
//
// InMemoryManager answers the way the Fabric items API does: JSON bodies,
// HTTP status codes and error objects carrying errorCode, message and
// requestId. It is meant for tests, examples and offline use of the
// reconciliation pipeline; production code talks to Fabric through
// fabricapi.Client.
package artifact

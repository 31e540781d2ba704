package core

import (
	"context"
	"encoding/json"
	"net/http"
)

// APIResponse is the raw outcome of a remote call: an HTTP style status code
// and the undecoded response body.
type APIResponse struct {
	Status int
	Body   []byte
	Header http.Header
}

// Succeeded reports whether Status is in the 2xx range.
func (r *APIResponse) Succeeded() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the JSON body into v.
func (r *APIResponse) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// CreateItemRequest is the payload for creating an item.
type CreateItemRequest struct {
	DisplayName string          `json:"displayName"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Definition  *ItemDefinition `json:"definition,omitempty"`
}

// ArtifactManager is the remote artifact service the pipeline consumes.
// Implementations return a non-nil error only for transport failures; a
// non-success status is reported through APIResponse.
type ArtifactManager interface {
	// GetDefinition fetches the item definition. folder is the local
	// destination, passed for diagnostics only.
	GetDefinition(ctx context.Context, artifact Artifact, folder string, progress Progress) (*APIResponse, error)
	GetItem(ctx context.Context, workspaceID, itemID string) (*APIResponse, error)
	ListItems(ctx context.Context, workspaceID string) (*APIResponse, error)
	CreateItem(ctx context.Context, workspaceID string, req CreateItemRequest) (*APIResponse, error)
	DeleteItem(ctx context.Context, artifact Artifact) (*APIResponse, error)
}

// DefinitionPublisher is the capability to push a local definition back to
// the remote service.
type DefinitionPublisher interface {
	UpdateDefinition(ctx context.Context, artifact Artifact, def ItemDefinition) (*APIResponse, error)
}

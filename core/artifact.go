package core

import (
	"encoding/base64"
	"fmt"
)

// PayloadTypeInlineBase64 is the only definition part encoding the
// reconciliation pipeline reads or writes.
const PayloadTypeInlineBase64 = "InlineBase64"

// Artifact identifies an item stored in a remote workspace. It is consumed,
// not owned, and must be treated as immutable for the duration of a folder
// operation.
type Artifact struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
	WorkspaceID string `json:"workspaceId"`
	Description string `json:"description,omitempty"`
	// Environment tags the cloud environment the artifact was listed from
	// (e.g. PROD, DAILY). Empty means untagged.
	Environment string `json:"-"`
}

// FolderName returns the deterministic local folder name for the artifact,
// "<DisplayName>.<Type>".
func (a Artifact) FolderName() string {
	return fmt.Sprintf("%s.%s", a.DisplayName, a.Type)
}

// DefinitionPart is one file of an item definition.
type DefinitionPart struct {
	Path        string `json:"path"`
	Payload     string `json:"payload"`
	PayloadType string `json:"payloadType"`
}

// IsInlineBase64 reports whether the part uses the inline base64 encoding.
func (p DefinitionPart) IsInlineBase64() bool { return p.PayloadType == PayloadTypeInlineBase64 }

// Decode returns the decoded payload bytes.
func (p DefinitionPart) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.Payload)
}

// NewInlinePart encodes raw content as an InlineBase64 part.
func NewInlinePart(path string, content []byte) DefinitionPart {
	return DefinitionPart{
		Path:        path,
		Payload:     base64.StdEncoding.EncodeToString(content),
		PayloadType: PayloadTypeInlineBase64,
	}
}

// ItemDefinition is the remote canonical representation of an artifact's
// content. Once fetched it is only compared against and written to disk.
type ItemDefinition struct {
	Format string           `json:"format,omitempty"`
	Parts  []DefinitionPart `json:"parts"`
}

package testutil

import (
	"encoding/base64"

	"github.com/hupe1980/fabricsync/core"
)

// DefinitionBuilder provides a fluent helper for constructing item
// definitions in tests.
// Example:
//
//	def := NewDefinitionBuilder().Part("a.json", `{"x":1}`).Build()
type DefinitionBuilder struct {
	format string
	parts  []core.DefinitionPart
}

// NewDefinitionBuilder creates an empty builder.
func NewDefinitionBuilder() *DefinitionBuilder { return &DefinitionBuilder{} }

// Format sets the definition format (chainable).
func (b *DefinitionBuilder) Format(f string) *DefinitionBuilder { b.format = f; return b }

// Part appends an InlineBase64 part with the given plain content (chainable).
func (b *DefinitionBuilder) Part(path, content string) *DefinitionBuilder {
	b.parts = append(b.parts, core.NewInlinePart(path, []byte(content)))
	return b
}

// TypedPart appends a part with an arbitrary payload type; content is base64
// encoded as is (chainable).
func (b *DefinitionBuilder) TypedPart(path, content, payloadType string) *DefinitionBuilder {
	b.parts = append(b.parts, core.DefinitionPart{
		Path:        path,
		Payload:     base64.StdEncoding.EncodeToString([]byte(content)),
		PayloadType: payloadType,
	})
	return b
}

// RawPart appends a part verbatim (chainable).
func (b *DefinitionBuilder) RawPart(p core.DefinitionPart) *DefinitionBuilder {
	b.parts = append(b.parts, p)
	return b
}

// Build constructs the core.ItemDefinition value.
func (b *DefinitionBuilder) Build() core.ItemDefinition {
	parts := make([]core.DefinitionPart, len(b.parts))
	copy(parts, b.parts)
	return core.ItemDefinition{Format: b.format, Parts: parts}
}

// Artifact returns a test artifact with the given display name and type in
// workspace "ws-1".
func Artifact(displayName, itemType string) core.Artifact {
	return core.Artifact{
		ID:          "id-" + displayName,
		DisplayName: displayName,
		Type:        itemType,
		WorkspaceID: "ws-1",
	}
}

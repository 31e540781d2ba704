package testutil

import (
	"context"

	"github.com/hupe1980/fabricsync/core"
	"github.com/stretchr/testify/mock"
)

// MockPrompter is a testify mock of core.Prompter.
type MockPrompter struct {
	mock.Mock
}

var _ core.Prompter = (*MockPrompter)(nil)

// ShowOpenDialog implements core.Prompter.
func (m *MockPrompter) ShowOpenDialog(ctx context.Context, opts core.OpenDialogOptions) (string, bool, error) {
	args := m.Called(ctx, opts)
	return args.String(0), args.Bool(1), args.Error(2)
}

// ShowMessage implements core.Prompter.
func (m *MockPrompter) ShowMessage(ctx context.Context, msg core.Message) (core.Choice, bool, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(core.Choice), args.Bool(1), args.Error(2)
}

// ShowInputBox implements core.Prompter.
func (m *MockPrompter) ShowInputBox(ctx context.Context, opts core.InputBoxOptions) (string, bool, error) {
	args := m.Called(ctx, opts)
	return args.String(0), args.Bool(1), args.Error(2)
}

// MockWorkspace is a testify mock of core.Workspace.
type MockWorkspace struct {
	mock.Mock
}

var _ core.Workspace = (*MockWorkspace)(nil)

// OpenFolder implements core.Workspace.
func (m *MockWorkspace) OpenFolder(ctx context.Context, path string, newWindow bool) error {
	return m.Called(ctx, path, newWindow).Error(0)
}

// AddFolder implements core.Workspace.
func (m *MockWorkspace) AddFolder(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

// MockArtifactManager is a testify mock of core.ArtifactManager and
// core.DefinitionPublisher.
type MockArtifactManager struct {
	mock.Mock
}

var (
	_ core.ArtifactManager     = (*MockArtifactManager)(nil)
	_ core.DefinitionPublisher = (*MockArtifactManager)(nil)
)

func response(args mock.Arguments) (*core.APIResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.APIResponse), args.Error(1)
}

// GetDefinition implements core.ArtifactManager.
func (m *MockArtifactManager) GetDefinition(ctx context.Context, a core.Artifact, folder string, p core.Progress) (*core.APIResponse, error) {
	return response(m.Called(ctx, a, folder, p))
}

// GetItem implements core.ArtifactManager.
func (m *MockArtifactManager) GetItem(ctx context.Context, workspaceID, itemID string) (*core.APIResponse, error) {
	return response(m.Called(ctx, workspaceID, itemID))
}

// ListItems implements core.ArtifactManager.
func (m *MockArtifactManager) ListItems(ctx context.Context, workspaceID string) (*core.APIResponse, error) {
	return response(m.Called(ctx, workspaceID))
}

// CreateItem implements core.ArtifactManager.
func (m *MockArtifactManager) CreateItem(ctx context.Context, workspaceID string, req core.CreateItemRequest) (*core.APIResponse, error) {
	return response(m.Called(ctx, workspaceID, req))
}

// DeleteItem implements core.ArtifactManager.
func (m *MockArtifactManager) DeleteItem(ctx context.Context, a core.Artifact) (*core.APIResponse, error) {
	return response(m.Called(ctx, a))
}

// UpdateDefinition implements core.DefinitionPublisher.
func (m *MockArtifactManager) UpdateDefinition(ctx context.Context, a core.Artifact, def core.ItemDefinition) (*core.APIResponse, error) {
	return response(m.Called(ctx, a, def))
}

// DefinitionResponse returns a 200 getDefinition response carrying def.
func DefinitionResponse(def core.ItemDefinition) *core.APIResponse {
	return JSONResponse(200, map[string]any{"definition": def})
}

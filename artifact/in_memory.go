package artifact

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hupe1980/fabricsync/core"
)

type stored struct {
	item core.Artifact
	def  core.ItemDefinition
}

// InMemoryManager keeps items and their definitions in a nested map guarded
// by an RWMutex. Definitions are copied on save and retrieval.
//
// Layout: workspaceID -> itemID -> item
type InMemoryManager struct {
	mu    sync.RWMutex
	items map[string]map[string]stored
}

var (
	_ core.ArtifactManager     = (*InMemoryManager)(nil)
	_ core.DefinitionPublisher = (*InMemoryManager)(nil)
)

// NewInMemoryManager returns an empty manager.
func NewInMemoryManager() *InMemoryManager {
	return &InMemoryManager{items: make(map[string]map[string]stored)}
}

func cloneDefinition(def core.ItemDefinition) core.ItemDefinition {
	out := core.ItemDefinition{Format: def.Format, Parts: make([]core.DefinitionPart, len(def.Parts))}
	copy(out.Parts, def.Parts)
	return out
}

// Put stores (or overwrites) an item with its definition.
func (m *InMemoryManager) Put(a core.Artifact, def core.ItemDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[a.WorkspaceID]; !ok {
		m.items[a.WorkspaceID] = make(map[string]stored)
	}
	m.items[a.WorkspaceID][a.ID] = stored{item: a, def: cloneDefinition(def)}
}

// Definition returns a copy of the stored definition.
func (m *InMemoryManager) Definition(workspaceID, itemID string) (core.ItemDefinition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[workspaceID][itemID]
	if !ok {
		return core.ItemDefinition{}, false
	}
	return cloneDefinition(s.def), true
}

func (m *InMemoryManager) lookup(workspaceID, itemID string) (stored, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[workspaceID][itemID]
	return s, ok
}

func respond(status int, v any) (*core.APIResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return &core.APIResponse{Status: status, Body: body, Header: h}, nil
}

func notFound(itemID string) (*core.APIResponse, error) {
	return respond(http.StatusNotFound, map[string]string{
		"errorCode": "ItemNotFound",
		"message":   "The requested item " + itemID + " was not found",
		"requestId": uuid.NewString(),
	})
}

// GetDefinition implements core.ArtifactManager.
func (m *InMemoryManager) GetDefinition(_ context.Context, a core.Artifact, _ string, _ core.Progress) (*core.APIResponse, error) {
	s, ok := m.lookup(a.WorkspaceID, a.ID)
	if !ok {
		return notFound(a.ID)
	}
	return respond(http.StatusOK, map[string]any{"definition": s.def})
}

// GetItem implements core.ArtifactManager.
func (m *InMemoryManager) GetItem(_ context.Context, workspaceID, itemID string) (*core.APIResponse, error) {
	s, ok := m.lookup(workspaceID, itemID)
	if !ok {
		return notFound(itemID)
	}
	return respond(http.StatusOK, s.item)
}

// ListItems implements core.ArtifactManager. Items are sorted by display name.
func (m *InMemoryManager) ListItems(_ context.Context, workspaceID string) (*core.APIResponse, error) {
	m.mu.RLock()
	items := make([]core.Artifact, 0, len(m.items[workspaceID]))
	for _, s := range m.items[workspaceID] {
		items = append(items, s.item)
	}
	m.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool { return items[i].DisplayName < items[j].DisplayName })
	return respond(http.StatusOK, map[string]any{"value": items})
}

// CreateItem implements core.ArtifactManager. Display names are unique per
// workspace and type.
func (m *InMemoryManager) CreateItem(_ context.Context, workspaceID string, req core.CreateItemRequest) (*core.APIResponse, error) {
	m.mu.Lock()
	for _, s := range m.items[workspaceID] {
		if s.item.DisplayName == req.DisplayName && s.item.Type == req.Type {
			m.mu.Unlock()
			return respond(http.StatusConflict, map[string]string{
				"errorCode": "ItemDisplayNameAlreadyInUse",
				"message":   "Requested '" + req.DisplayName + "' is already in use",
				"requestId": uuid.NewString(),
			})
		}
	}
	a := core.Artifact{
		ID:          uuid.NewString(),
		DisplayName: req.DisplayName,
		Type:        req.Type,
		WorkspaceID: workspaceID,
		Description: req.Description,
	}
	var def core.ItemDefinition
	if req.Definition != nil {
		def = cloneDefinition(*req.Definition)
	}
	if _, ok := m.items[workspaceID]; !ok {
		m.items[workspaceID] = make(map[string]stored)
	}
	m.items[workspaceID][a.ID] = stored{item: a, def: def}
	m.mu.Unlock()
	return respond(http.StatusCreated, a)
}

// DeleteItem implements core.ArtifactManager.
func (m *InMemoryManager) DeleteItem(_ context.Context, a core.Artifact) (*core.APIResponse, error) {
	m.mu.Lock()
	_, ok := m.items[a.WorkspaceID][a.ID]
	if ok {
		delete(m.items[a.WorkspaceID], a.ID)
	}
	m.mu.Unlock()
	if !ok {
		return notFound(a.ID)
	}
	return &core.APIResponse{Status: http.StatusOK}, nil
}

// UpdateDefinition implements core.DefinitionPublisher.
func (m *InMemoryManager) UpdateDefinition(_ context.Context, a core.Artifact, def core.ItemDefinition) (*core.APIResponse, error) {
	m.mu.Lock()
	s, ok := m.items[a.WorkspaceID][a.ID]
	if ok {
		s.def = cloneDefinition(def)
		m.items[a.WorkspaceID][a.ID] = s
	}
	m.mu.Unlock()
	if !ok {
		return notFound(a.ID)
	}
	return &core.APIResponse{Status: http.StatusOK}, nil
}

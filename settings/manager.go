package settings

import (
	"context"
	"sync"

	"github.com/hupe1980/fabricsync/core"
)

// Manager caches the settings record loaded from a store. Every Update is
// persisted before it becomes visible to Snapshot.
type Manager struct {
	mu      sync.RWMutex
	store   core.SettingsStore
	current core.Settings
}

// Open loads the record from store, starting fresh when it is absent or was
// written by a different version.
func Open(ctx context.Context, store core.SettingsStore) (*Manager, error) {
	s, ok, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		s = core.NewSettings()
	}
	return &Manager{store: store, current: s}, nil
}

// Snapshot returns a deep copy of the current record.
func (m *Manager) Snapshot() core.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// Update applies fn to a copy of the record and persists it. On a save
// failure the in-memory record is left unchanged.
func (m *Manager) Update(ctx context.Context, fn func(*core.Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.current.Clone()
	fn(&next)
	next.Version = core.SettingsVersion
	if err := m.store.Save(ctx, next); err != nil {
		return err
	}
	m.current = next
	return nil
}

package settings

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/fabricsync/core"
)

// FileStore keeps the settings record as a JSON document on disk.
type FileStore struct {
	path string
}

var _ core.SettingsStore = (*FileStore)(nil)

// NewFileStore returns a store persisting to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the record. A missing file or a version mismatch returns ok=false.
func (s *FileStore) Load(ctx context.Context) (core.Settings, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.Settings{}, false, err
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Settings{}, false, nil
	}
	if err != nil {
		return core.Settings{}, false, &core.OpError{Op: "settings.load", Kind: core.KindStorage, Path: s.path, Err: err}
	}
	return decode(b, s.path)
}

// Save writes the record atomically (temp file + rename).
func (s *FileStore) Save(ctx context.Context, settings core.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return &core.OpError{Op: "settings.marshal", Kind: core.KindStorage, Path: s.path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &core.OpError{Op: "settings.mkdir", Kind: core.KindStorage, Path: s.path, Err: err}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return &core.OpError{Op: "settings.write", Kind: core.KindStorage, Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return &core.OpError{Op: "settings.rename", Kind: core.KindStorage, Path: s.path, Err: err}
	}
	return nil
}

// Decode parses a serialized record. Exported for alternative backends.
func Decode(b []byte) (core.Settings, bool, error) { return decode(b, "") }

func decode(b []byte, path string) (core.Settings, bool, error) {
	var s core.Settings
	if err := json.Unmarshal(b, &s); err != nil {
		return core.Settings{}, false, &core.OpError{Op: "settings.decode", Kind: core.KindStorage, Path: path, Err: err}
	}
	if s.Version != core.SettingsVersion {
		return core.Settings{}, false, nil
	}
	if s.Artifacts == nil {
		s.Artifacts = []core.ArtifactSettings{}
	}
	if s.Workspaces == nil {
		s.Workspaces = []core.WorkspaceSettings{}
	}
	return s, true, nil
}

// InMemoryStore is a volatile SettingsStore useful for tests and single
// process embedding. Records are cloned on save and load.
type InMemoryStore struct {
	mu    sync.RWMutex
	saved *core.Settings
	saves int
}

var _ core.SettingsStore = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore { return &InMemoryStore{} }

// Load returns the last saved record.
func (m *InMemoryStore) Load(context.Context) (core.Settings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.saved == nil || m.saved.Version != core.SettingsVersion {
		return core.Settings{}, false, nil
	}
	return m.saved.Clone(), true, nil
}

// Save stores a clone of settings.
func (m *InMemoryStore) Save(_ context.Context, settings core.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := settings.Clone()
	m.saved = &c
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *InMemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

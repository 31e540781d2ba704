// Package config provides core.Configuration implementations and typed
// accessors for the settings fabricsync reads.
//
// Keys are flat dotted names as used by editor settings files, e.g.
// "fabric.localFolderSaveBehavior".
package config

import (
	"context"
	"strings"
	"sync"

	"github.com/hupe1980/fabricsync/core"
)

const (
	// KeySaveBehavior holds the core.SaveBehavior for folder choices.
	KeySaveBehavior = "fabric.localFolderSaveBehavior"
	// KeyEnvironment holds the active cloud environment.
	KeyEnvironment = "fabric.environment"

	// DefaultEnvironment is used when KeyEnvironment is unset.
	DefaultEnvironment = "PROD"
)

// SaveBehavior returns the configured save behavior, falling back to
// core.SaveBehaviorPrompt for unset or unknown values.
func SaveBehavior(cfg core.Configuration) core.SaveBehavior {
	b := core.SaveBehavior(strings.ToLower(strings.TrimSpace(cfg.Get(KeySaveBehavior, string(core.SaveBehaviorPrompt)))))
	if !b.Valid() {
		return core.SaveBehaviorPrompt
	}
	return b
}

// Environment returns the active environment tag in upper case.
func Environment(cfg core.Configuration) string {
	env := strings.ToUpper(strings.TrimSpace(cfg.Get(KeyEnvironment, DefaultEnvironment)))
	if env == "" {
		return DefaultEnvironment
	}
	return env
}

// MemoryProvider is an in-process core.Configuration.
type MemoryProvider struct {
	mu      sync.RWMutex
	values  map[string]string
	updates int
}

var _ core.Configuration = (*MemoryProvider)(nil)

// NewMemoryProvider returns a provider seeded with values.
func NewMemoryProvider(values map[string]string) *MemoryProvider {
	m := &MemoryProvider{values: map[string]string{}}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Get returns the value for key or def.
func (m *MemoryProvider) Get(key, def string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.values[key]; ok {
		return v
	}
	return def
}

// Update sets key to value.
func (m *MemoryProvider) Update(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.updates++
	return nil
}

// Updates returns how many times Update was called.
func (m *MemoryProvider) Updates() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updates
}

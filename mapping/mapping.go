// Package mapping implements the folder mapping store: the persisted
// association between an artifact and the local folder it is synchronized
// with.
//
// Entries live in the Artifacts section of the settings record. There is at
// most one entry per artifact id; saving again for the same artifact updates
// the entry in place. Entries are never deleted here. A stale entry simply
// fails the existence checks of its callers.
package mapping

import (
	"context"
	"strings"

	"github.com/hupe1980/fabricsync/core"
)

// Record is the settings record the store reads and mutates.
// *settings.Manager implements it.
type Record interface {
	Snapshot() core.Settings
	Update(ctx context.Context, fn func(*core.Settings)) error
}

// Entry is the result of a reverse lookup.
type Entry struct {
	ArtifactID  string
	WorkspaceID string
	Environment string
}

// Store is the folder mapping store. It is safe for concurrent use as long
// as Record is.
type Store struct {
	record Record
}

// New returns a store over record.
func New(record Record) *Store {
	return &Store{record: record}
}

// Get returns the local folder stored for artifactID.
func (s *Store) Get(artifactID string) (string, bool) {
	snap := s.record.Snapshot()
	if i := indexOf(snap.Artifacts, artifactID); i >= 0 {
		return snap.Artifacts[i].LocalFolder, true
	}
	return "", false
}

// Set creates or updates the entry for artifactID and persists it
// immediately. The path keeps its original casing.
func (s *Store) Set(ctx context.Context, artifactID, path, workspaceID, environment string) error {
	return s.record.Update(ctx, func(rec *core.Settings) {
		entry := core.ArtifactSettings{
			ArtifactID:        artifactID,
			LocalFolder:       path,
			WorkspaceID:       workspaceID,
			FabricEnvironment: environment,
		}
		if i := indexOf(rec.Artifacts, artifactID); i >= 0 {
			rec.Artifacts[i] = entry
			return
		}
		rec.Artifacts = append(rec.Artifacts, entry)
	})
}

// FindByPath returns the artifact mapped to path. Entries tagged with an
// environment other than currentEnvironment are ignored; untagged entries
// match any environment.
func (s *Store) FindByPath(path, currentEnvironment string) (Entry, bool) {
	want := normalize(path)
	if want == "" {
		return Entry{}, false
	}
	env := strings.TrimSpace(currentEnvironment)
	for _, a := range s.record.Snapshot().Artifacts {
		if normalize(a.LocalFolder) != want {
			continue
		}
		if a.FabricEnvironment != "" && env != "" && !strings.EqualFold(a.FabricEnvironment, env) {
			continue
		}
		return Entry{ArtifactID: a.ArtifactID, WorkspaceID: a.WorkspaceID, Environment: a.FabricEnvironment}, true
	}
	return Entry{}, false
}

// Entries returns a copy of all entries.
func (s *Store) Entries() []core.ArtifactSettings {
	return s.record.Snapshot().Artifacts
}

func indexOf(entries []core.ArtifactSettings, artifactID string) int {
	want := normalize(artifactID)
	for i, a := range entries {
		if normalize(a.ArtifactID) == want {
			return i
		}
	}
	return -1
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

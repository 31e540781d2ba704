package core

import "context"

// SettingsVersion is the persisted record layout version. Records carrying
// any other version are discarded on load.
const SettingsVersion = 3

// ArtifactSettings is a folder mapping entry. At most one entry exists per
// ArtifactID.
type ArtifactSettings struct {
	ArtifactID        string `json:"artifactId"`
	LocalFolder       string `json:"localFolder"`
	WorkspaceID       string `json:"workspaceId"`
	FabricEnvironment string `json:"fabricEnvironment,omitempty"`
}

// WorkspaceSettings remembers per workspace state.
type WorkspaceSettings struct {
	WorkspaceID string `json:"workspaceId"`
	TenantID    string `json:"tenantId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// TenantSettings identifies the signed-in tenant.
type TenantSettings struct {
	TenantID    string `json:"tenantId"`
	DisplayName string `json:"displayName,omitempty"`
	DefaultName string `json:"defaultDomain,omitempty"`
}

// Settings is the persisted, versioned record.
type Settings struct {
	Version       int                 `json:"version"`
	Workspaces    []WorkspaceSettings `json:"workspaces"`
	Artifacts     []ArtifactSettings  `json:"artifacts"`
	CurrentTenant *TenantSettings     `json:"currentTenant,omitempty"`
	Environment   string              `json:"fabricEnvironment,omitempty"`
}

// NewSettings returns an empty record at the current version.
func NewSettings() Settings {
	return Settings{Version: SettingsVersion, Workspaces: []WorkspaceSettings{}, Artifacts: []ArtifactSettings{}}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.Workspaces = append([]WorkspaceSettings{}, s.Workspaces...)
	out.Artifacts = append([]ArtifactSettings{}, s.Artifacts...)
	if s.CurrentTenant != nil {
		t := *s.CurrentTenant
		out.CurrentTenant = &t
	}
	return out
}

// SettingsStore persists the settings record. Load reports ok=false when no
// record exists or its version differs from SettingsVersion.
type SettingsStore interface {
	Load(ctx context.Context) (settings Settings, ok bool, err error)
	Save(ctx context.Context, settings Settings) error
}

// SaveBehavior governs whether folder choices are remembered.
type SaveBehavior string

const (
	SaveBehaviorPrompt SaveBehavior = "prompt"
	SaveBehaviorAlways SaveBehavior = "always"
	SaveBehaviorNever  SaveBehavior = "never"
)

// Valid reports whether b is a known behavior.
func (b SaveBehavior) Valid() bool {
	switch b {
	case SaveBehaviorPrompt, SaveBehaviorAlways, SaveBehaviorNever:
		return true
	}
	return false
}

// Configuration is the user configuration provider.
type Configuration interface {
	// Get returns the value for key or def when unset.
	Get(key, def string) string
	Update(ctx context.Context, key, value string) error
}

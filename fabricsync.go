// Package fabricsync ties the local folder reconciliation pieces together:
// resolving the folder of an item, downloading its definition without
// silently overwriting local edits, remembering the folder choice, and
// publishing a mapped folder back to Fabric.
//
// Most applications construct a Sync via New, supplying the remote
// artifact manager and the editor host (prompter and workspace), and then
// call Download, ChangeLocalFolder, OpenLocalFolder or Publish. Unset
// services default to the local file system and in-memory settings.
package fabricsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/hupe1980/fabricsync/config"
	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/definition"
	"github.com/hupe1980/fabricsync/download"
	"github.com/hupe1980/fabricsync/folder"
	"github.com/hupe1980/fabricsync/localfs"
	"github.com/hupe1980/fabricsync/logging"
	"github.com/hupe1980/fabricsync/mapping"
	"github.com/hupe1980/fabricsync/settings"
	"github.com/hupe1980/fabricsync/workflow"
)

// StepSelectFolder names the folder picker in cancellations.
const StepSelectFolder = "selectFolder"

// StepConfirmCopy names the confirmation to copy over an existing folder.
const StepConfirmCopy = "confirmCopy"

// ChoiceReplace confirms copying into a non-empty folder.
var ChoiceReplace = core.Choice{ID: "replace", Label: "Replace"}

// Options configures a Sync.
type Options struct {
	// Publisher enables Publish. Publish fails when it is nil.
	Publisher core.DefinitionPublisher
	// FileSystem defaults to localfs.
	FileSystem core.FileSystem
	// Settings defaults to a manager over a settings.InMemoryStore.
	Settings *settings.Manager
	// Config defaults to an empty config.MemoryProvider.
	Config core.Configuration
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Sync is the high-level facade over the reconciliation components.
type Sync struct {
	publisher   core.DefinitionPublisher
	fs          core.FileSystem
	prompter    core.Prompter
	settings    *settings.Manager
	coordinator *settings.Coordinator
	mapping     *mapping.Store
	cfg         core.Configuration
	resolver    *folder.Resolver
	downloader  *download.Orchestrator
	workflow    *workflow.Workflow
	reader      *definition.Reader
	logger      logging.Logger
}

// New creates a Sync.
func New(manager core.ArtifactManager, prompter core.Prompter, workspace core.Workspace, optFns ...func(o *Options)) (*Sync, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.FileSystem == nil {
		opts.FileSystem = localfs.New()
	}
	if opts.Config == nil {
		opts.Config = config.NewMemoryProvider(nil)
	}
	if opts.Settings == nil {
		m, err := settings.Open(context.Background(), settings.NewInMemoryStore())
		if err != nil {
			return nil, err
		}
		opts.Settings = m
	}

	store := mapping.New(opts.Settings)
	s := &Sync{
		publisher:   opts.Publisher,
		fs:          opts.FileSystem,
		prompter:    prompter,
		settings:    opts.Settings,
		coordinator: settings.NewCoordinator(opts.Settings),
		mapping:     store,
		cfg:         opts.Config,
		logger:      opts.Logger,
	}
	s.resolver = folder.NewResolver(store, opts.FileSystem, prompter, func(o *folder.ResolverOptions) { o.Logger = opts.Logger })
	s.downloader = download.New(manager, opts.FileSystem, prompter, func(o *download.Options) { o.Logger = opts.Logger })
	s.workflow = workflow.New(prompter, workspace, store, opts.Config, func(o *workflow.Options) { o.Logger = opts.Logger })
	s.reader = definition.NewReader(opts.FileSystem, func(o *definition.Options) { o.Logger = opts.Logger })
	s.coordinator.Subscribe(func(c settings.Change, updated core.Settings) {
		s.logger.Info("Settings changed", "kind", string(c.Kind), "environment", updated.Environment)
	})
	return s, nil
}

// Environment returns the active environment tag: the one recorded in
// settings, or the configured one.
func (s *Sync) Environment() string {
	if env := strings.TrimSpace(s.settings.Snapshot().Environment); env != "" {
		return strings.ToUpper(env)
	}
	return config.Environment(s.cfg)
}

func (s *Sync) environmentOf(a core.Artifact) string {
	if env := strings.TrimSpace(a.Environment); env != "" {
		return strings.ToUpper(env)
	}
	return s.Environment()
}

// SwitchEnvironment records env as the active environment. The current
// tenant is cleared when the environment actually changes.
func (s *Sync) SwitchEnvironment(ctx context.Context, env string) error {
	return s.coordinator.Handle(ctx, settings.Change{Kind: settings.ChangeEnvironment, Environment: strings.ToUpper(strings.TrimSpace(env))})
}

// SwitchTenant records tenant as the current tenant. A nil tenant signs out.
func (s *Sync) SwitchTenant(ctx context.Context, tenant *core.TenantSettings) error {
	return s.coordinator.Handle(ctx, settings.Change{Kind: settings.ChangeTenant, Tenant: tenant})
}

// OnSettingsChange registers fn for persisted settings changes.
func (s *Sync) OnSettingsChange(fn settings.Subscriber) (unsubscribe func()) {
	return s.coordinator.Subscribe(fn)
}

// Download resolves the local folder of artifact, saves its definition there
// and runs the folder action workflow. Choosing a different folder in the
// workflow repeats the sequence with the picker forced.
//
// The folder mapping is only persisted by the workflow, i.e. after the
// definition has been written.
func (s *Sync) Download(ctx context.Context, artifact core.Artifact, progress core.Progress) (*workflow.Outcome, error) {
	mode := folder.PromptDiscretionary
	for {
		res, err := s.resolver.Resolve(ctx, artifact, folder.Options{Prompt: mode, Create: true})
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, core.Cancelled(StepSelectFolder)
		}
		if err := s.downloader.Download(ctx, artifact, res.Path, progress); err != nil {
			return nil, err
		}
		out, err := s.workflow.Run(ctx, workflow.Request{
			Artifact:          artifact,
			Folder:            res.Path,
			Prompted:          res.Prompted,
			AllowChangeFolder: true,
			Message:           fmt.Sprintf("Downloaded %s to %s. What would you like to do?", artifact.DisplayName, res.Path),
			Environment:       s.environmentOf(artifact),
		})
		if err != nil {
			return out, err
		}
		if out.Action != workflow.ActionChangeFolder {
			return out, nil
		}
		mode = folder.PromptAlways
	}
}

// ChangeLocalFolder moves the mapping of artifact to a newly picked folder.
// The contents of the current folder are copied over when it exists;
// otherwise the definition is downloaded into the new folder. The new
// mapping is persisted without consulting the save behavior since the user
// asked for the change explicitly.
func (s *Sync) ChangeLocalFolder(ctx context.Context, artifact core.Artifact, progress core.Progress) (*workflow.Outcome, error) {
	previous, hadPrevious := s.mapping.Get(artifact.ID)

	res, err := s.resolver.Resolve(ctx, artifact, folder.Options{Prompt: folder.PromptAlways, Create: true})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, core.Cancelled(StepSelectFolder)
	}

	if hadPrevious && s.isDir(ctx, previous) && !samePath(previous, res.Path) {
		if err := s.copyFolder(ctx, previous, res.Path); err != nil {
			return nil, err
		}
	} else if err := s.downloader.Download(ctx, artifact, res.Path, progress); err != nil {
		return nil, err
	}

	if err := s.mapping.Set(ctx, artifact.ID, res.Path, artifact.WorkspaceID, s.environmentOf(artifact)); err != nil {
		return nil, err
	}
	s.logger.Info("Local folder changed", "artifact_id", artifact.ID, "from", previous, "to", res.Path)

	return s.workflow.Run(ctx, workflow.Request{
		Artifact:    artifact,
		Folder:      res.Path,
		Environment: s.environmentOf(artifact),
	})
}

func (s *Sync) copyFolder(ctx context.Context, src, dst string) error {
	err := s.fs.Copy(ctx, src, dst, false)
	if errors.Is(err, fs.ErrExist) {
		choice, ok, perr := s.prompter.ShowMessage(ctx, core.Message{
			Text:     fmt.Sprintf("%s already contains files. Replace them with the contents of %s?", dst, src),
			Modal:    true,
			Severity: core.SeverityWarning,
			Choices:  []core.Choice{ChoiceReplace},
		})
		if perr != nil {
			return perr
		}
		if !ok || choice.ID != ChoiceReplace.ID {
			return core.Cancelled(StepConfirmCopy)
		}
		err = s.fs.Copy(ctx, src, dst, true)
	}
	if err != nil {
		return &core.OpError{Op: "sync.copy", Kind: core.KindFileSystem, Path: dst, Err: err}
	}
	return nil
}

// OpenLocalFolder runs the folder action workflow for the mapped folder of
// artifact. A missing mapping or folder is a *core.OpError of kind
// core.KindNotFound.
func (s *Sync) OpenLocalFolder(ctx context.Context, artifact core.Artifact) (*workflow.Outcome, error) {
	res, err := s.resolver.Resolve(ctx, artifact, folder.Options{Prompt: folder.PromptNever})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, &core.OpError{Op: "sync.open", Kind: core.KindNotFound, Err: core.ErrNotFound}
	}
	if !s.isDir(ctx, res.Path) {
		return nil, &core.OpError{Op: "sync.open", Kind: core.KindNotFound, Path: res.Path, Err: core.ErrNotFound}
	}
	return s.workflow.Run(ctx, workflow.Request{
		Artifact:    artifact,
		Folder:      res.Path,
		Environment: s.environmentOf(artifact),
	})
}

// Publish reads the mapped folder of artifact and pushes it as the item's
// definition.
func (s *Sync) Publish(ctx context.Context, artifact core.Artifact, progress core.Progress) error {
	if progress == nil {
		progress = core.NoProgress
	}
	if s.publisher == nil {
		return errors.New("publishing is not supported by the configured artifact manager")
	}
	dir, ok := s.mapping.Get(artifact.ID)
	if !ok || strings.TrimSpace(dir) == "" {
		return &core.OpError{Op: "sync.publish", Kind: core.KindNotFound, Err: core.ErrNotFound}
	}

	progress.Report(core.ProgressStep{Message: fmt.Sprintf("Reading %s", dir), Increment: 30})
	def, err := s.reader.Read(ctx, dir)
	if err != nil {
		return err
	}

	progress.Report(core.ProgressStep{Message: fmt.Sprintf("Publishing %d file(s)", len(def.Parts)), Increment: 40})
	resp, err := s.publisher.UpdateDefinition(ctx, artifact, *def)
	if err != nil {
		return fmt.Errorf("publish %s (%s): %w", artifact.DisplayName, artifact.Type, err)
	}
	if !resp.Succeeded() {
		return download.NewAPIError("updateDefinition", artifact, resp)
	}
	progress.Report(core.ProgressStep{Message: "Publish complete", Increment: 30})
	s.logger.Info("Definition published", "artifact_id", artifact.ID, "folder", dir, "parts", len(def.Parts))
	return nil
}

// ArtifactForFolder returns the artifact mapped to path in the active
// environment.
func (s *Sync) ArtifactForFolder(path string) (mapping.Entry, bool) {
	return s.mapping.FindByPath(path, s.Environment())
}

// LocalFolder returns the stored folder of an artifact.
func (s *Sync) LocalFolder(artifactID string) (string, bool) {
	return s.mapping.Get(artifactID)
}

func (s *Sync) isDir(ctx context.Context, path string) bool {
	fi, err := s.fs.Stat(ctx, path)
	return err == nil && fi.IsDir()
}

func samePath(a, b string) bool {
	return strings.EqualFold(strings.TrimRight(a, `/\`), strings.TrimRight(b, `/\`))
}

// Package folder resolves the local folder an artifact is synchronized with,
// either from the folder mapping store or by asking the user to pick one.
package folder

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/logging"
)

// PromptMode controls when the folder picker is shown.
type PromptMode int

const (
	// PromptNever only consults the mapping store.
	PromptNever PromptMode = iota
	// PromptDiscretionary shows the picker when no mapping exists.
	PromptDiscretionary
	// PromptAlways shows the picker even when a mapping exists.
	PromptAlways
)

// String returns the mode name.
func (m PromptMode) String() string {
	switch m {
	case PromptNever:
		return "never"
	case PromptDiscretionary:
		return "discretionary"
	case PromptAlways:
		return "always"
	default:
		return "unknown"
	}
}

// Lookup is the read side of the folder mapping store.
type Lookup interface {
	Get(artifactID string) (string, bool)
}

// Options configures a single Resolve call.
type Options struct {
	Prompt PromptMode
	// Create makes Resolve create the folder when it does not exist yet.
	Create bool
}

// Result is the folder Resolve settled on.
type Result struct {
	Path string
	// Prompted is true iff the picker was shown and accepted in this call.
	Prompted bool
	// Created is true when Resolve created the folder.
	Created bool
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Resolver determines local folders for artifacts.
type Resolver struct {
	lookup   Lookup
	fs       core.FileSystem
	prompter core.Prompter
	logger   logging.Logger
}

// NewResolver creates a resolver.
func NewResolver(lookup Lookup, fsys core.FileSystem, prompter core.Prompter, optFns ...func(o *ResolverOptions)) *Resolver {
	opts := ResolverOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Resolver{lookup: lookup, fs: fsys, prompter: prompter, logger: opts.Logger}
}

// Resolve returns the folder to use for artifact. A nil result with a nil
// error means no folder could be determined (no mapping under PromptNever or
// a dismissed picker) and the caller cannot proceed. Folder creation failures
// are returned as *core.OpError.
func (r *Resolver) Resolve(ctx context.Context, artifact core.Artifact, opts Options) (*Result, error) {
	stored, hasStored := r.lookup.Get(artifact.ID)
	hasStored = hasStored && strings.TrimSpace(stored) != ""

	var res *Result
	switch {
	case hasStored && opts.Prompt != PromptAlways:
		res = &Result{Path: stored}
	case opts.Prompt == PromptNever:
		return nil, nil
	default:
		selected, ok, err := r.pick(ctx, artifact, stored, hasStored)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		res = &Result{Path: filepath.Join(selected, artifact.FolderName()), Prompted: true}
	}

	if opts.Create {
		created, err := r.ensureDir(ctx, res.Path)
		if err != nil {
			return nil, err
		}
		res.Created = created
	}
	r.logger.Debug("Local folder resolved", "artifact_id", artifact.ID, "path", res.Path, "prompt_mode", opts.Prompt.String(), "prompted", res.Prompted, "created", res.Created)
	return res, nil
}

func (r *Resolver) pick(ctx context.Context, artifact core.Artifact, stored string, hasStored bool) (string, bool, error) {
	dialog := core.OpenDialogOptions{
		Title:     "Select a local folder for " + artifact.DisplayName,
		OpenLabel: "Select folder",
	}
	if hasStored {
		dialog.DefaultPath = r.defaultLocation(ctx, stored)
	}
	selected, ok, err := r.prompter.ShowOpenDialog(ctx, dialog)
	if err != nil {
		return "", false, err
	}
	if !ok || strings.TrimSpace(selected) == "" {
		return "", false, nil
	}
	return selected, true, nil
}

// defaultLocation returns the parent of the stored folder when it still
// exists, or "" when it cannot be determined.
func (r *Resolver) defaultLocation(ctx context.Context, stored string) string {
	parent := filepath.Dir(filepath.Clean(stored))
	fi, err := r.fs.Stat(ctx, parent)
	if err != nil || !fi.IsDir() {
		r.logger.Debug("Ignoring picker default location", "path", parent, "error", err)
		return ""
	}
	return parent
}

func (r *Resolver) ensureDir(ctx context.Context, path string) (bool, error) {
	if fi, err := r.fs.Stat(ctx, path); err == nil && fi.IsDir() {
		return false, nil
	}
	if err := r.fs.CreateDirectory(ctx, path); err != nil {
		return false, &core.OpError{Op: "folder.create", Kind: core.KindFileSystem, Path: path, Err: err}
	}
	return true, nil
}

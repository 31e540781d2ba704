// Package workflow runs the interactive sequence that follows a download or
// the opening of a mapped folder: ask what to do with the folder, do it, and
// decide whether the folder choice should be remembered.
//
// Opening a folder in the current window or adding it to the workspace makes
// the editor host reload. For those actions the save-preference step is
// completed before the action runs; for all other actions it runs in the
// background after the action.
package workflow

import (
	"context"
	"fmt"

	"github.com/hupe1980/fabricsync/config"
	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/logging"
)

// Action is the user's choice in the folder action menu.
type Action string

const (
	ActionNone              Action = "none"
	ActionOpenCurrentWindow Action = "openCurrentWindow"
	ActionOpenNewWindow     Action = "openNewWindow"
	ActionAddToWorkspace    Action = "addToWorkspace"
	ActionChangeFolder      Action = "changeFolder"
)

// UpdatesWorkspace reports whether performing a reloads the editor host.
func (a Action) UpdatesWorkspace() bool {
	return a == ActionOpenCurrentWindow || a == ActionAddToWorkspace
}

// Menu choices. IDs are the Action values.
var (
	ChoiceOpenCurrentWindow = core.Choice{ID: string(ActionOpenCurrentWindow), Label: "Open folder"}
	ChoiceOpenNewWindow     = core.Choice{ID: string(ActionOpenNewWindow), Label: "Open in new window"}
	ChoiceAddToWorkspace    = core.Choice{ID: string(ActionAddToWorkspace), Label: "Add to workspace"}
	ChoiceChangeFolder      = core.Choice{ID: string(ActionChangeFolder), Label: "Choose a different folder"}
)

// Save preference dialog choices.
var (
	ChoiceRememberYes    = core.Choice{ID: "yes", Label: "Yes"}
	ChoiceRememberNo     = core.Choice{ID: "no", Label: "No"}
	ChoiceRememberAlways = core.Choice{ID: "always", Label: "Always"}
	ChoiceRememberNever  = core.Choice{ID: "never", Label: "Never"}
)

// MappingWriter persists folder choices. *mapping.Store implements it.
type MappingWriter interface {
	Set(ctx context.Context, artifactID, path, workspaceID, environment string) error
}

// Request describes one run of the workflow.
type Request struct {
	Artifact core.Artifact
	Folder   string
	// Prompted is Result.Prompted of the folder resolution. Without it there
	// is no new choice to remember.
	Prompted bool
	// AllowChangeFolder adds ActionChangeFolder to the menu.
	AllowChangeFolder bool
	// Message overrides the menu text.
	Message string
	// Environment tags a persisted mapping.
	Environment string
}

// Outcome reports the chosen action. Done yields the result of the save
// preference step once it has finished and is then closed.
type Outcome struct {
	Action Action
	Done   <-chan error
}

// Wait blocks until the save preference step finished and returns its error.
func (o *Outcome) Wait() error {
	if o == nil || o.Done == nil {
		return nil
	}
	return <-o.Done
}

// Options configures a Workflow.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Workflow is the folder action and save preference state machine.
type Workflow struct {
	prompter  core.Prompter
	workspace core.Workspace
	mapping   MappingWriter
	cfg       core.Configuration
	logger    logging.Logger
}

// New creates a workflow.
func New(prompter core.Prompter, workspace core.Workspace, mapping MappingWriter, cfg core.Configuration, optFns ...func(o *Options)) *Workflow {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Workflow{prompter: prompter, workspace: workspace, mapping: mapping, cfg: cfg, logger: opts.Logger}
}

// Run asks for the folder action and performs it together with the save
// preference step, ordered as described in the package documentation.
// ActionChangeFolder is not performed here; the caller resolves a new folder.
func (w *Workflow) Run(ctx context.Context, req Request) (*Outcome, error) {
	action, err := w.chooseAction(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Action: action}

	if action == ActionChangeFolder {
		out.Done = finished(nil)
		return out, nil
	}

	if action.UpdatesWorkspace() {
		prefErr := w.SavePreference(ctx, req)
		if prefErr != nil {
			w.logger.Warn("Saving folder preference failed", "artifact_id", req.Artifact.ID, "error", prefErr)
		}
		out.Done = finished(prefErr)
		return out, w.perform(ctx, action, req.Folder)
	}

	if err := w.perform(ctx, action, req.Folder); err != nil {
		out.Done = finished(nil)
		return out, err
	}
	done := make(chan error, 1)
	out.Done = done
	bg := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		err := w.SavePreference(bg, req)
		if err != nil {
			w.logger.Warn("Saving folder preference failed", "artifact_id", req.Artifact.ID, "error", err)
		}
		done <- err
	}()
	return out, nil
}

func finished(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}

func (w *Workflow) chooseAction(ctx context.Context, req Request) (Action, error) {
	text := req.Message
	if text == "" {
		text = fmt.Sprintf("%s is available in %s. What would you like to do?", req.Artifact.DisplayName, req.Folder)
	}
	choices := []core.Choice{ChoiceOpenCurrentWindow, ChoiceOpenNewWindow, ChoiceAddToWorkspace}
	if req.AllowChangeFolder {
		choices = append(choices, ChoiceChangeFolder)
	}
	choice, ok, err := w.prompter.ShowMessage(ctx, core.Message{Text: text, Choices: choices})
	if err != nil {
		return ActionNone, err
	}
	if !ok {
		return ActionNone, nil
	}
	switch a := Action(choice.ID); a {
	case ActionOpenCurrentWindow, ActionOpenNewWindow, ActionAddToWorkspace:
		return a, nil
	case ActionChangeFolder:
		if req.AllowChangeFolder {
			return a, nil
		}
	}
	return ActionNone, nil
}

func (w *Workflow) perform(ctx context.Context, action Action, folder string) error {
	var err error
	switch action {
	case ActionOpenCurrentWindow:
		err = w.workspace.OpenFolder(ctx, folder, false)
	case ActionOpenNewWindow:
		err = w.workspace.OpenFolder(ctx, folder, true)
	case ActionAddToWorkspace:
		err = w.workspace.AddFolder(ctx, folder)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, folder, err)
	}
	return nil
}

// SavePreference remembers req.Folder for req.Artifact according to the
// configured core.SaveBehavior. It does nothing unless req.Prompted.
func (w *Workflow) SavePreference(ctx context.Context, req Request) error {
	if !req.Prompted {
		return nil
	}
	switch config.SaveBehavior(w.cfg) {
	case core.SaveBehaviorNever:
		return nil
	case core.SaveBehaviorAlways:
		return w.remember(ctx, req)
	}

	choice, ok, err := w.prompter.ShowMessage(ctx, core.Message{
		Text:    fmt.Sprintf("Remember %s as the local folder for %s?", req.Folder, req.Artifact.DisplayName),
		Choices: []core.Choice{ChoiceRememberYes, ChoiceRememberNo, ChoiceRememberAlways, ChoiceRememberNever},
	})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	switch choice.ID {
	case ChoiceRememberYes.ID:
		return w.remember(ctx, req)
	case ChoiceRememberAlways.ID:
		if err := w.cfg.Update(ctx, config.KeySaveBehavior, string(core.SaveBehaviorAlways)); err != nil {
			return err
		}
		return w.remember(ctx, req)
	case ChoiceRememberNever.ID:
		return w.cfg.Update(ctx, config.KeySaveBehavior, string(core.SaveBehaviorNever))
	}
	return nil
}

func (w *Workflow) remember(ctx context.Context, req Request) error {
	if err := w.mapping.Set(ctx, req.Artifact.ID, req.Folder, req.Artifact.WorkspaceID, req.Environment); err != nil {
		return err
	}
	w.logger.Info("Local folder remembered", "artifact_id", req.Artifact.ID, "folder", req.Folder)
	return nil
}

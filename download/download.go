// Package download fetches a remote item definition and saves it into a
// local folder, asking the user before local changes get overwritten.
package download

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/definition"
	"github.com/hupe1980/fabricsync/logging"
	"github.com/tidwall/gjson"
)

// StepConfirmOverwrite names the overwrite confirmation in cancellations.
const StepConfirmOverwrite = "confirmOverwrite"

// ChoiceOverwrite is the confirmation button of the overwrite prompt.
var ChoiceOverwrite = core.Choice{ID: "overwrite", Label: "Yes"}

// ConflictDetector reports local files that differ from a definition.
type ConflictDetector interface {
	Conflicts(ctx context.Context, def core.ItemDefinition, dest string) ([]string, error)
}

// DefinitionWriter saves a definition into a folder.
type DefinitionWriter interface {
	Save(ctx context.Context, def core.ItemDefinition, dest string) error
}

// Options configures an Orchestrator.
type Options struct {
	// Detector defaults to a definition.Detector over the file system.
	Detector ConflictDetector
	// Writer defaults to a definition.Writer over the file system.
	Writer DefinitionWriter
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Orchestrator runs the fetch, detect, confirm, write sequence.
type Orchestrator struct {
	manager  core.ArtifactManager
	prompter core.Prompter
	detector ConflictDetector
	writer   DefinitionWriter
	logger   logging.Logger
}

// New creates an orchestrator.
func New(manager core.ArtifactManager, fsys core.FileSystem, prompter core.Prompter, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	withLogger := func(o *definition.Options) { o.Logger = opts.Logger }
	if opts.Detector == nil {
		opts.Detector = definition.NewDetector(fsys, withLogger)
	}
	if opts.Writer == nil {
		opts.Writer = definition.NewWriter(fsys, withLogger)
	}
	return &Orchestrator{
		manager:  manager,
		prompter: prompter,
		detector: opts.Detector,
		writer:   opts.Writer,
		logger:   opts.Logger,
	}
}

type getDefinitionResponse struct {
	Definition core.ItemDefinition `json:"definition"`
}

// Download saves the remote definition of artifact into folder. Remote
// failures are *core.APIError, declining the overwrite prompt is a
// *core.CancelError and nothing is written in either case.
func (o *Orchestrator) Download(ctx context.Context, artifact core.Artifact, folder string, progress core.Progress) error {
	if progress == nil {
		progress = core.NoProgress
	}
	start := time.Now()

	progress.Report(core.ProgressStep{Message: fmt.Sprintf("Downloading %s", artifact.DisplayName), Increment: 10})
	resp, err := o.manager.GetDefinition(ctx, artifact, folder, progress)
	if err != nil {
		return fmt.Errorf("download %s (%s): %w", artifact.DisplayName, artifact.Type, err)
	}
	if !resp.Succeeded() {
		return NewAPIError("getDefinition", artifact, resp)
	}
	var payload getDefinitionResponse
	if err := resp.Decode(&payload); err != nil {
		return &core.OpError{Op: "download.decode", Kind: core.KindInvalidDefinition, Err: err}
	}
	def := payload.Definition

	progress.Report(core.ProgressStep{Message: "Checking for local changes", Increment: 40})
	conflicts, err := o.detector.Conflicts(ctx, def, folder)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		if err := o.confirmOverwrite(ctx, artifact, conflicts); err != nil {
			return err
		}
	}

	progress.Report(core.ProgressStep{Message: fmt.Sprintf("Writing %d file(s)", len(def.Parts)), Increment: 40})
	if err := o.writer.Save(ctx, def, folder); err != nil {
		return err
	}
	progress.Report(core.ProgressStep{Message: "Download complete", Increment: 10})

	o.logger.Info("Definition downloaded",
		"artifact_id", artifact.ID,
		"folder", folder,
		"parts", len(def.Parts),
		"conflicts", len(conflicts),
		"duration", time.Since(start),
	)
	return nil
}

func (o *Orchestrator) confirmOverwrite(ctx context.Context, artifact core.Artifact, conflicts []string) error {
	choice, ok, err := o.prompter.ShowMessage(ctx, core.Message{
		Text:     fmt.Sprintf("The following files of %s differ from the remote definition and will be overwritten. Continue?", artifact.DisplayName),
		Detail:   strings.Join(conflicts, "\n"),
		Modal:    true,
		Severity: core.SeverityWarning,
		Choices:  []core.Choice{ChoiceOverwrite},
	})
	if err != nil {
		return err
	}
	if !ok || choice.ID != ChoiceOverwrite.ID {
		o.logger.Info("Overwrite declined", "artifact_id", artifact.ID, "conflicts", len(conflicts))
		return core.Cancelled(StepConfirmOverwrite)
	}
	return nil
}

// NewAPIError builds a *core.APIError from a non-success response. The server
// error code, message and request id are taken from the JSON body when
// present, the request id falling back to the RequestId header.
func NewAPIError(op string, artifact core.Artifact, resp *core.APIResponse) *core.APIError {
	e := &core.APIError{
		Op:           op,
		Status:       resp.Status,
		ArtifactName: artifact.DisplayName,
		ArtifactType: artifact.Type,
	}
	if gjson.ValidBytes(resp.Body) {
		body := gjson.ParseBytes(resp.Body)
		e.ErrorCode = body.Get("errorCode").String()
		e.Message = body.Get("message").String()
		e.RequestID = body.Get("requestId").String()
	}
	if e.RequestID == "" && resp.Header != nil {
		e.RequestID = resp.Header.Get("RequestId")
	}
	return e
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/fabricsync"
	"github.com/hupe1980/fabricsync/command"
	"github.com/hupe1980/fabricsync/config"
	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/definition"
	"github.com/hupe1980/fabricsync/download"
	"github.com/hupe1980/fabricsync/fabricapi"
	"github.com/hupe1980/fabricsync/localfs"
	"github.com/hupe1980/fabricsync/logging"
	"github.com/hupe1980/fabricsync/prompt"
	"github.com/hupe1980/fabricsync/settings"
	"github.com/hupe1980/fabricsync/settings/sqlitestore"
	"github.com/hupe1980/fabricsync/workflow"
)

// Registered command names.
const (
	CommandDownload     = "fabric.download"
	CommandChangeFolder = "fabric.changeLocalFolder"
	CommandOpen         = "fabric.openLocalFolder"
	CommandPublish      = "fabric.publish"
	CommandFind         = "fabric.findArtifact"
	CommandList         = "fabric.listItems"
	CommandCreate       = "fabric.createItem"
	CommandDelete       = "fabric.deleteItem"
)

// app is the composition root of one CLI invocation.
type app struct {
	out      io.Writer
	errOut   io.Writer
	logger   *logging.FabricLogger
	client   *fabricapi.Client
	sync     *fabricsync.Sync
	registry *command.Registry
	reader   *definition.Reader
	closers  []io.Closer
}

func defaultPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "fabricsync", name)
}

func newApp(ctx context.Context, flags *globalFlags, in io.Reader, out, errOut io.Writer) (*app, error) {
	level := logging.LogLevelWarn
	if flags.debug {
		level = logging.LogLevelDebug
	}
	logger := logging.NewLogger(&logging.LoggerConfig{Level: level, Format: flags.logFormat, Output: errOut, Component: "cli"})

	a := &app{out: out, errOut: errOut, logger: logger}

	cfgPath := flags.configPath
	if cfgPath == "" {
		cfgPath = defaultPath("config.json")
	}
	cfg, err := config.OpenFile(cfgPath)
	if err != nil {
		return nil, err
	}

	var store core.SettingsStore
	if flags.settingsDB != "" {
		db, err := sqlitestore.Open(flags.settingsDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		store = db
	} else {
		path := flags.settings
		if path == "" {
			path = defaultPath("settings.json")
		}
		store = settings.NewFileStore(path)
	}
	mgr, err := settings.Open(ctx, store)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	env := flags.environment
	if env == "" {
		if recorded := mgr.Snapshot().Environment; recorded != "" {
			env = recorded
		} else {
			env = config.Environment(cfg)
		}
	}
	baseURL := flags.baseURL
	if baseURL == "" {
		baseURL = fabricapi.BaseURLFor(env)
	}
	a.client = fabricapi.New(fabricapi.StaticToken(flags.token), func(o *fabricapi.Options) {
		o.BaseURL = baseURL
		o.Logger = logger.WithComponent("fabricapi")
	})

	fsys := localfs.New()
	a.reader = definition.NewReader(fsys)
	a.sync, err = fabricsync.New(a.client, prompt.New(in, errOut), newConsoleWorkspace(errOut, flags.editor), func(o *fabricsync.Options) {
		o.Publisher = a.client
		o.FileSystem = fsys
		o.Settings = mgr
		o.Config = cfg
		o.Logger = logger.WithComponent("sync")
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if flags.environment != "" && !strings.EqualFold(a.sync.Environment(), flags.environment) {
		if err := a.sync.SwitchEnvironment(ctx, flags.environment); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	a.registry = command.NewRegistry(func(o *command.Options) { o.Logger = logger.WithComponent("command") })
	if err := a.registry.ReplaceAll(a.registrations()); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the resources opened by newApp.
func (a *app) Close() error {
	if a.registry != nil {
		a.registry.Dispose()
	}
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) registrations() []command.Registration {
	return []command.Registration{
		{Name: CommandDownload, Title: "Download item", Handler: a.itemHandler(CommandDownload, a.download)},
		{Name: CommandChangeFolder, Title: "Change local folder", Handler: a.itemHandler(CommandChangeFolder, a.changeFolder)},
		{Name: CommandOpen, Title: "Open local folder", Handler: a.itemHandler(CommandOpen, a.open)},
		{Name: CommandPublish, Title: "Publish item", Handler: a.itemHandler(CommandPublish, a.publish)},
		{Name: CommandFind, Title: "Find item for folder", Handler: a.find},
		{Name: CommandList, Title: "List items", Handler: a.list},
		{Name: CommandCreate, Title: "Create item", Handler: a.create},
		{Name: CommandDelete, Title: "Delete item", Handler: a.itemHandler(CommandDelete, a.delete)},
	}
}

// itemHandler resolves the <workspace-id> <item-id> arguments to an artifact
// and reports user cancellation as a message instead of an error.
func (a *app) itemHandler(name string, fn func(context.Context, core.Artifact) error) command.Handler {
	return func(ctx context.Context, args []string) error {
		if len(args) != 2 {
			return fmt.Errorf("expected <workspace-id> <item-id>, got %d argument(s)", len(args))
		}
		artifact, err := a.artifact(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		log, opID := a.logger.WithArtifact(artifact.ID).WithOperation()
		log.Debug("Command started", "command", name, "operation_id", opID)
		start := time.Now()
		err = fn(ctx, artifact)
		if step, ok := core.IsCancelled(err); ok {
			log.Debug("Command cancelled", "command", name, "step", step)
			_, _ = fmt.Fprintln(a.errOut, "Cancelled.")
			return nil
		}
		log.LogOperation(name, time.Since(start), err == nil, err)
		return err
	}
}

func (a *app) artifact(ctx context.Context, workspaceID, itemID string) (core.Artifact, error) {
	resp, err := a.client.GetItem(ctx, workspaceID, itemID)
	if err != nil {
		return core.Artifact{}, err
	}
	if !resp.Succeeded() {
		return core.Artifact{}, download.NewAPIError("getItem", core.Artifact{ID: itemID, WorkspaceID: workspaceID, DisplayName: itemID}, resp)
	}
	var artifact core.Artifact
	if err := resp.Decode(&artifact); err != nil {
		return core.Artifact{}, &core.OpError{Op: "cli.item", Kind: core.KindInvalidDefinition, Err: err}
	}
	if artifact.WorkspaceID == "" {
		artifact.WorkspaceID = workspaceID
	}
	artifact.Environment = a.sync.Environment()
	return artifact, nil
}

func (a *app) wait(out *workflow.Outcome) {
	if err := out.Wait(); err != nil {
		_, _ = fmt.Fprintf(a.errOut, "Warning: folder preference not saved: %v\n", err)
	}
}

func (a *app) download(ctx context.Context, artifact core.Artifact) error {
	out, err := a.sync.Download(ctx, artifact, newProgressPrinter(a.errOut))
	if out != nil {
		a.wait(out)
	}
	if err != nil {
		return err
	}
	if dir, ok := a.sync.LocalFolder(artifact.ID); ok {
		_, _ = fmt.Fprintln(a.out, dir)
	}
	return nil
}

func (a *app) changeFolder(ctx context.Context, artifact core.Artifact) error {
	out, err := a.sync.ChangeLocalFolder(ctx, artifact, newProgressPrinter(a.errOut))
	if out != nil {
		a.wait(out)
	}
	return err
}

func (a *app) open(ctx context.Context, artifact core.Artifact) error {
	out, err := a.sync.OpenLocalFolder(ctx, artifact)
	if out != nil {
		a.wait(out)
	}
	if core.IsKind(err, core.KindNotFound) {
		return fmt.Errorf("%s has no local folder; run download first", artifact.DisplayName)
	}
	return err
}

func (a *app) publish(ctx context.Context, artifact core.Artifact) error {
	if err := a.sync.Publish(ctx, artifact, newProgressPrinter(a.errOut)); err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return fmt.Errorf("%s has no local folder; run download first", artifact.DisplayName)
		}
		return err
	}
	return nil
}

func (a *app) delete(ctx context.Context, artifact core.Artifact) error {
	resp, err := a.client.DeleteItem(ctx, artifact)
	if err != nil {
		return err
	}
	if !resp.Succeeded() {
		return download.NewAPIError("deleteItem", artifact, resp)
	}
	_, _ = fmt.Fprintf(a.out, "Deleted %s (%s)\n", artifact.DisplayName, artifact.Type)
	return nil
}

func (a *app) find(_ context.Context, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	entry, ok := a.sync.ArtifactForFolder(abs)
	if !ok {
		return fmt.Errorf("no item is mapped to %s", abs)
	}
	_, _ = fmt.Fprintf(a.out, "%s\t%s\t%s\n", entry.WorkspaceID, entry.ArtifactID, entry.Environment)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected <workspace-id>")
	}
	resp, err := a.client.ListItems(ctx, args[0])
	if err != nil {
		return err
	}
	if !resp.Succeeded() {
		return download.NewAPIError("listItems", core.Artifact{WorkspaceID: args[0], DisplayName: args[0], Type: "Workspace"}, resp)
	}
	var page struct {
		Value []core.Artifact `json:"value"`
	}
	if err := resp.Decode(&page); err != nil {
		return &core.OpError{Op: "cli.list", Kind: core.KindInvalidDefinition, Err: err}
	}
	for _, item := range page.Value {
		local, _ := a.sync.LocalFolder(item.ID)
		_, _ = fmt.Fprintf(a.out, "%s\t%s\t%s\t%s\n", item.ID, item.Type, item.DisplayName, local)
	}
	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return errors.New("expected <workspace-id> <display-name> <type> [folder]")
	}
	req := core.CreateItemRequest{DisplayName: args[1], Type: args[2]}
	if len(args) == 4 {
		def, err := a.reader.Read(ctx, args[3])
		if err != nil {
			return err
		}
		req.Definition = def
	}
	resp, err := a.client.CreateItem(ctx, args[0], req)
	if err != nil {
		return err
	}
	if !resp.Succeeded() {
		return download.NewAPIError("createItem", core.Artifact{WorkspaceID: args[0], DisplayName: req.DisplayName, Type: req.Type}, resp)
	}
	var created core.Artifact
	if err := resp.Decode(&created); err == nil && created.ID != "" {
		_, _ = fmt.Fprintln(a.out, created.ID)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/hupe1980/fabricsync/core"
)

// consoleWorkspace is the editor host of the CLI. With an editor command it
// launches the editor; otherwise it prints what the user should open.
type consoleWorkspace struct {
	out    io.Writer
	editor []string
	run    func(ctx context.Context, name string, args ...string) error
}

var _ core.Workspace = (*consoleWorkspace)(nil)

func newConsoleWorkspace(out io.Writer, editor string) *consoleWorkspace {
	return &consoleWorkspace{out: out, editor: strings.Fields(editor), run: runDetached}
}

func runDetached(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Start()
}

// OpenFolder implements core.Workspace. The flags follow the VS Code CLI.
func (w *consoleWorkspace) OpenFolder(ctx context.Context, path string, newWindow bool) error {
	if len(w.editor) == 0 {
		where := "this window"
		if newWindow {
			where = "a new window"
		}
		_, _ = fmt.Fprintf(w.out, "Open %s in %s\n", path, where)
		return nil
	}
	flag := "--reuse-window"
	if newWindow {
		flag = "--new-window"
	}
	return w.launch(ctx, flag, path)
}

// AddFolder implements core.Workspace.
func (w *consoleWorkspace) AddFolder(ctx context.Context, path string) error {
	if len(w.editor) == 0 {
		_, _ = fmt.Fprintf(w.out, "Add %s to your workspace\n", path)
		return nil
	}
	return w.launch(ctx, "--add", path)
}

func (w *consoleWorkspace) launch(ctx context.Context, args ...string) error {
	full := append(append([]string{}, w.editor[1:]...), args...)
	if err := w.run(ctx, w.editor[0], full...); err != nil {
		return fmt.Errorf("launch %s: %w", w.editor[0], err)
	}
	return nil
}

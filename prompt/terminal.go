// Package prompt implements core.Prompter on a line based terminal.
//
// Choices are listed with numbers and may be selected by number, label or
// id. An empty line dismisses the prompt, as does the end of input.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/hupe1980/fabricsync/core"
)

// Options configures a Terminal.
type Options struct {
	// Theme defaults to DefaultTheme over the output writer.
	Theme *Theme
	// MaxAttempts bounds re-prompting on invalid input. Defaults to 3.
	MaxAttempts int
}

// Terminal is a core.Prompter over a reader and writer.
type Terminal struct {
	mu          sync.Mutex
	in          *bufio.Reader
	out         io.Writer
	theme       Theme
	maxAttempts int
}

var _ core.Prompter = (*Terminal)(nil)

// New creates a terminal prompter.
func New(in io.Reader, out io.Writer, optFns ...func(o *Options)) *Terminal {
	opts := Options{MaxAttempts: 3}
	for _, fn := range optFns {
		fn(&opts)
	}
	theme := DefaultTheme(lipgloss.NewRenderer(out))
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Terminal{in: bufio.NewReader(in), out: out, theme: theme, maxAttempts: opts.MaxAttempts}
}

// NewStdio creates a terminal prompter on stdin and stderr.
func NewStdio() *Terminal {
	return New(os.Stdin, os.Stderr)
}

// readLine returns the trimmed next line. ok is false at end of input.
func (t *Terminal) readLine(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	line, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", false, nil
	}
	return strings.TrimSpace(line), true, nil
}

func (t *Terminal) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(t.out, format, args...)
}

// ShowOpenDialog asks for a folder path. Relative paths are made absolute.
func (t *Terminal) ShowOpenDialog(ctx context.Context, opts core.OpenDialogOptions) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	title := opts.Title
	if title == "" {
		title = "Select a folder"
	}
	t.printf("%s\n", t.theme.Title.Render(title))
	if opts.DefaultPath != "" {
		t.printf("%s\n", t.theme.Help.Render("Default: "+opts.DefaultPath))
	}
	label := opts.OpenLabel
	if label == "" {
		label = "Folder"
	}
	t.printf("%s: ", label)

	line, ok, err := t.readLine(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	if line == "" {
		if opts.DefaultPath == "" {
			return "", false, nil
		}
		line = opts.DefaultPath
	}
	abs, err := filepath.Abs(line)
	if err != nil {
		return "", false, err
	}
	return abs, true, nil
}

// ShowMessage prints msg and reads the selected choice.
func (t *Terminal) ShowMessage(ctx context.Context, msg core.Message) (core.Choice, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.printf("%s\n", t.styleFor(msg.Severity).Render(msg.Text))
	if msg.Detail != "" {
		t.printf("%s\n", t.theme.Detail.Render(msg.Detail))
	}
	if len(msg.Choices) == 0 {
		return core.Choice{}, false, nil
	}
	for i, c := range msg.Choices {
		t.printf("  %s %s\n", t.theme.Choice.Render(strconv.Itoa(i+1)+")"), c.Label)
	}
	help := "Press Enter to dismiss."
	if msg.Modal {
		help = "Press Enter to cancel."
	}
	t.printf("%s\n", t.theme.Help.Render(help))

	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		t.printf("> ")
		line, ok, err := t.readLine(ctx)
		if err != nil || !ok || line == "" {
			return core.Choice{}, false, err
		}
		if c, found := match(msg.Choices, line); found {
			return c, true, nil
		}
		t.printf("%s\n", t.theme.Warning.Render(fmt.Sprintf("%q is not a valid choice", line)))
	}
	return core.Choice{}, false, nil
}

func match(choices []core.Choice, input string) (core.Choice, bool) {
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(choices) {
			return choices[n-1], true
		}
		return core.Choice{}, false
	}
	for _, c := range choices {
		if strings.EqualFold(c.Label, input) || strings.EqualFold(c.ID, input) {
			return c, true
		}
	}
	return core.Choice{}, false
}

// ShowInputBox reads a line of free text. An empty line keeps opts.Value.
func (t *Terminal) ShowInputBox(ctx context.Context, opts core.InputBoxOptions) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prompt := opts.Prompt
	if prompt == "" {
		prompt = "Value"
	}
	t.printf("%s", t.theme.Title.Render(prompt))
	switch {
	case opts.Value != "":
		t.printf(" %s", t.theme.Help.Render("["+opts.Value+"]"))
	case opts.Placeholder != "":
		t.printf(" %s", t.theme.Help.Render("("+opts.Placeholder+")"))
	}
	t.printf(": ")

	line, ok, err := t.readLine(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	if line == "" {
		if opts.Value == "" {
			return "", false, nil
		}
		return opts.Value, true, nil
	}
	return line, true, nil
}

func (t *Terminal) styleFor(s core.Severity) lipgloss.Style {
	switch s {
	case core.SeverityWarning:
		return t.theme.Warning
	case core.SeverityError:
		return t.theme.Error
	default:
		return t.theme.Title
	}
}

package core

import "context"

// Severity selects the message box flavor.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// Choice is a button offered by a message box. Callers branch on ID, never on
// the localized Label.
type Choice struct {
	ID    string
	Label string
}

// Message describes a message box.
type Message struct {
	Text     string
	Detail   string
	Modal    bool
	Severity Severity
	Choices  []Choice
}

// OpenDialogOptions configures the folder picker.
type OpenDialogOptions struct {
	Title       string
	OpenLabel   string
	DefaultPath string
}

// InputBoxOptions configures a free text prompt.
type InputBoxOptions struct {
	Prompt      string
	Placeholder string
	Value       string
}

// Prompter provides the user interaction primitives. A dismissed prompt is
// reported with ok=false and a nil error.
type Prompter interface {
	// ShowOpenDialog lets the user pick a single folder.
	ShowOpenDialog(ctx context.Context, opts OpenDialogOptions) (path string, ok bool, err error)
	// ShowMessage displays a message box and returns the selected choice.
	ShowMessage(ctx context.Context, msg Message) (choice Choice, ok bool, err error)
	ShowInputBox(ctx context.Context, opts InputBoxOptions) (value string, ok bool, err error)
}

// Workspace is the editor host the folder actions operate on.
type Workspace interface {
	// OpenFolder opens path, replacing the current workspace unless newWindow.
	OpenFolder(ctx context.Context, path string, newWindow bool) error
	// AddFolder appends path to the current workspace.
	AddFolder(ctx context.Context, path string) error
}

// ProgressStep is one progress notification.
type ProgressStep struct {
	Message   string
	Increment int
}

// Progress receives progress notifications of a long running operation.
type Progress interface {
	Report(step ProgressStep)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(step ProgressStep)

// Report implements Progress.
func (f ProgressFunc) Report(step ProgressStep) { f(step) }

// NoProgress discards progress notifications.
var NoProgress Progress = ProgressFunc(func(ProgressStep) {})

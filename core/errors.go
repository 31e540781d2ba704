package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for broad classification.
var (
	ErrCancelled       = errors.New("cancelled by user")
	ErrNotFound        = errors.New("not found")
	ErrVersionMismatch = errors.New("settings version mismatch")
)

// CancelError reports that the user declined or dismissed a prompt at Step.
// It is never an application failure; Step is meant for telemetry.
type CancelError struct {
	Step string
}

func (e *CancelError) Error() string { return fmt.Sprintf("cancelled by user at %s", e.Step) }

// Is makes errors.Is(err, ErrCancelled) match.
func (e *CancelError) Is(target error) bool { return target == ErrCancelled }

// Cancelled returns a CancelError for step.
func Cancelled(step string) error { return &CancelError{Step: step} }

// IsCancelled reports whether err is a user cancellation and returns the step.
func IsCancelled(err error) (string, bool) {
	var ce *CancelError
	if errors.As(err, &ce) {
		return ce.Step, true
	}
	return "", false
}

// APIError wraps a non-success response of the artifact service.
type APIError struct {
	Op           string
	Status       int
	ErrorCode    string
	RequestID    string
	Message      string
	ArtifactName string
	ArtifactType string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed for %s (%s): status %d", e.Op, e.ArtifactName, e.ArtifactType, e.Status)
	if e.ErrorCode != "" {
		fmt.Fprintf(&b, ", error code %s", e.ErrorCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " (request id %s)", e.RequestID)
	}
	return b.String()
}

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindFileSystem        ErrorKind = "filesystem"
	KindInvalidDefinition ErrorKind = "invalid_definition"
	KindNotFound          ErrorKind = "not_found"
	KindInvalidConfig     ErrorKind = "invalid_config"
	KindStorage           ErrorKind = "storage"
)

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind ErrorKind
	Path string // Optional: relevant file or folder path
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind helps callers classify errors without depending on implementation packages.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}

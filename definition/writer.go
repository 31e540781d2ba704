package definition

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/logging"
)

// Writer writes definition parts into a folder.
type Writer struct {
	fs     core.FileSystem
	logger logging.Logger
}

// NewWriter returns a writer using fsys.
func NewWriter(fsys core.FileSystem, optFns ...func(o *Options)) *Writer {
	opts := buildOptions(optFns)
	return &Writer{fs: fsys, logger: opts.Logger}
}

// Save overwrites every InlineBase64 part below dest. Each file is replaced
// on its own; a failure leaves files written before it in place.
func (w *Writer) Save(ctx context.Context, def core.ItemDefinition, dest string) error {
	written := 0
	for _, part := range def.Parts {
		if !part.IsInlineBase64() {
			continue
		}
		target, ok := SafeJoin(dest, part.Path)
		if !ok {
			w.logger.Debug("Skipping definition part outside destination", "path", part.Path, "destination", dest)
			continue
		}
		linked, err := w.throughSymlink(ctx, dest, target)
		if err != nil {
			return &core.OpError{Op: "definition.stat", Kind: core.KindFileSystem, Path: target, Err: err}
		}
		if linked {
			w.logger.Debug("Skipping definition part below a symlinked directory", "path", part.Path, "destination", dest)
			continue
		}
		content, err := part.Decode()
		if err != nil {
			return &core.OpError{Op: "definition.decode", Kind: core.KindInvalidDefinition, Path: part.Path, Err: err}
		}
		if err := w.fs.CreateDirectory(ctx, filepath.Dir(target)); err != nil {
			return &core.OpError{Op: "definition.mkdir", Kind: core.KindFileSystem, Path: filepath.Dir(target), Err: err}
		}
		if err := w.fs.WriteFile(ctx, target, content); err != nil {
			return &core.OpError{Op: "definition.write", Kind: core.KindFileSystem, Path: target, Err: err}
		}
		written++
	}
	w.logger.Debug("Definition saved", "destination", dest, "files", written)
	return nil
}

// throughSymlink reports whether any existing directory between dest and the
// parent of target is a symbolic link. dest itself is trusted.
func (w *Writer) throughSymlink(ctx context.Context, dest, target string) (bool, error) {
	base := filepath.Clean(dest)
	rel, err := filepath.Rel(base, filepath.Dir(target))
	if err != nil {
		return true, nil
	}
	if rel == "." {
		return false, nil
	}
	cur := base
	for _, name := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, name)
		fi, err := w.fs.Stat(ctx, cur)
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if fi.Type == core.FileTypeSymlink {
			return true, nil
		}
	}
	return false, nil
}

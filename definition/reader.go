package definition

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/logging"
)

// platformEntry is the only dot entry that belongs to a definition.
const platformEntry = ".platform"

// Reader builds a definition from the files of a local folder.
type Reader struct {
	fs     core.FileSystem
	logger logging.Logger
}

// NewReader returns a reader using fsys.
func NewReader(fsys core.FileSystem, optFns ...func(o *Options)) *Reader {
	opts := buildOptions(optFns)
	return &Reader{fs: fsys, logger: opts.Logger}
}

// Read walks dir and returns one InlineBase64 part per regular file, with
// slash separated paths relative to dir. Dot entries other than .platform
// and symlinks are skipped.
func (r *Reader) Read(ctx context.Context, dir string) (*core.ItemDefinition, error) {
	def := &core.ItemDefinition{Parts: []core.DefinitionPart{}}
	if err := r.walk(ctx, dir, "", def); err != nil {
		return nil, err
	}
	return def, nil
}

func (r *Reader) walk(ctx context.Context, root, rel string, def *core.ItemDefinition) error {
	dir := filepath.Join(root, filepath.FromSlash(rel))
	entries, err := r.fs.ReadDirectory(ctx, dir)
	if err != nil {
		return &core.OpError{Op: "definition.readdir", Kind: core.KindFileSystem, Path: dir, Err: err}
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name, ".") && e.Name != platformEntry {
			continue
		}
		child := path.Join(rel, e.Name)
		switch e.Type {
		case core.FileTypeDirectory:
			if err := r.walk(ctx, root, child, def); err != nil {
				return err
			}
		case core.FileTypeFile:
			full := filepath.Join(root, filepath.FromSlash(child))
			b, err := r.fs.ReadFile(ctx, full)
			if err != nil {
				return &core.OpError{Op: "definition.read", Kind: core.KindFileSystem, Path: full, Err: err}
			}
			def.Parts = append(def.Parts, core.NewInlinePart(child, b))
		default:
			r.logger.Debug("Skipping non-regular entry", "path", child)
		}
	}
	return nil
}

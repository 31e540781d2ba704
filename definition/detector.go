package definition

import (
	"bytes"
	"context"
	"strings"

	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/logging"
)

// Detector compares a definition with the files already present in a folder.
type Detector struct {
	fs     core.FileSystem
	logger logging.Logger
}

// NewDetector returns a detector reading through fsys.
func NewDetector(fsys core.FileSystem, optFns ...func(o *Options)) *Detector {
	opts := buildOptions(optFns)
	return &Detector{fs: fsys, logger: opts.Logger}
}

// Conflicts returns the paths of the parts whose local file exists and
// differs from the remote payload, in definition order. Missing files are not
// conflicts. Line endings are normalized before comparing, and .json parts
// fall back to a structural comparison (see JSONEquivalent).
func (d *Detector) Conflicts(ctx context.Context, def core.ItemDefinition, dest string) ([]string, error) {
	conflicts := []string{}
	for _, part := range def.Parts {
		if !part.IsInlineBase64() {
			continue
		}
		target, ok := SafeJoin(dest, part.Path)
		if !ok {
			d.logger.Debug("Skipping definition part outside destination", "path", part.Path, "destination", dest)
			continue
		}
		fi, err := d.fs.Stat(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		remote, err := part.Decode()
		if err != nil {
			return nil, &core.OpError{Op: "definition.decode", Kind: core.KindInvalidDefinition, Path: part.Path, Err: err}
		}
		if fi.IsDir() {
			conflicts = append(conflicts, part.Path)
			continue
		}
		local, err := d.fs.ReadFile(ctx, target)
		if err != nil {
			return nil, &core.OpError{Op: "definition.read", Kind: core.KindFileSystem, Path: target, Err: err}
		}
		if !sameContent(part.Path, local, remote) {
			conflicts = append(conflicts, part.Path)
		}
	}
	return conflicts, nil
}

func sameContent(partPath string, local, remote []byte) bool {
	l := normalizeNewlines(local)
	r := normalizeNewlines(remote)
	if bytes.Equal(l, r) {
		return true
	}
	if strings.HasSuffix(strings.ToLower(partPath), ".json") {
		return JSONEquivalent(l, r)
	}
	return false
}

func normalizeNewlines(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
}

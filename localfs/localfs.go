// Package localfs implements core.FileSystem on top of the operating system.
package localfs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hupe1980/fabricsync/core"
)

const (
	dirPerm  fs.FileMode = 0o755
	filePerm fs.FileMode = 0o644
)

// FS is the OS backed file system. The zero value is ready to use.
type FS struct{}

var _ core.FileSystem = FS{}

// New returns an OS backed file system.
func New() FS { return FS{} }

// Stat returns type and size of path. Symlinks are reported as links.
func (FS) Stat(ctx context.Context, path string) (core.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return core.FileInfo{}, err
	}
	fi, err := os.Lstat(path)
	if err != nil {
		return core.FileInfo{}, err
	}
	return core.FileInfo{Type: fileType(fi.Mode()), Size: fi.Size()}, nil
}

// ReadFile returns the full content of path.
func (FS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// WriteFile replaces the content of path. Data is written to a sibling
// temporary file first and renamed into place so readers never observe a
// partially written file.
func (FS) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// ReadDirectory lists the direct children of path sorted by name.
func (FS) ReadDirectory(ctx context.Context, path string) ([]core.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]core.DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, core.DirEntry{Name: e.Name(), Type: fileType(e.Type())})
	}
	return out, nil
}

// CreateDirectory creates path and any missing parents.
func (FS) CreateDirectory(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(path, dirPerm)
}

// Copy copies src to dst. Directories are copied recursively. Without
// overwrite an existing destination file is an error.
func (f FS) Copy(ctx context.Context, src, dst string, overwrite bool) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, dirPerm)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !overwrite {
			if _, statErr := os.Lstat(target); statErr == nil {
				return fmt.Errorf("copy %s: %w", target, fs.ErrExist)
			}
		}
		if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
			return err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return f.WriteFile(ctx, target, b)
	})
}

func fileType(m fs.FileMode) core.FileType {
	switch {
	case m&fs.ModeSymlink != 0:
		return core.FileTypeSymlink
	case m.IsDir():
		return core.FileTypeDirectory
	case m.IsRegular():
		return core.FileTypeFile
	default:
		return core.FileTypeUnknown
	}
}

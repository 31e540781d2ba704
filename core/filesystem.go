package core

import "context"

// FileType classifies a file system entry.
type FileType int

const (
	// FileTypeUnknown is an entry of unknown kind.
	FileTypeUnknown FileType = iota
	// FileTypeFile is a regular file.
	FileTypeFile
	// FileTypeDirectory is a directory.
	FileTypeDirectory
	// FileTypeSymlink is a symbolic link.
	FileTypeSymlink
)

// FileInfo is the subset of stat information the pipeline relies on.
type FileInfo struct {
	Type FileType
	Size int64
}

// IsDir reports whether the entry is a directory.
func (fi FileInfo) IsDir() bool { return fi.Type == FileTypeDirectory }

// DirEntry is a single child returned by ReadDirectory.
type DirEntry struct {
	Name string
	Type FileType
}

// FileSystem abstracts hierarchical file system access. Implementations
// should return errors satisfying errors.Is(err, fs.ErrNotExist) for missing
// entries.
type FileSystem interface {
	Stat(ctx context.Context, path string) (FileInfo, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// WriteFile creates or truncates path with data.
	WriteFile(ctx context.Context, path string, data []byte) error
	ReadDirectory(ctx context.Context, path string) ([]DirEntry, error)
	Copy(ctx context.Context, src, dst string, overwrite bool) error
	// CreateDirectory creates path and any missing parents.
	CreateDirectory(ctx context.Context, path string) error
}

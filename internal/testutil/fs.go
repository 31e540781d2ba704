package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hupe1980/fabricsync/core"
)

// JSONResponse builds an APIResponse with v marshaled as body.
func JSONResponse(status int, v any) *core.APIResponse {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return &core.APIResponse{Status: status, Body: b}
}

// FaultyFS wraps a core.FileSystem and injects errors per operation. It also
// counts writes so tests can assert nothing was touched.
type FaultyFS struct {
	core.FileSystem

	mu        sync.Mutex
	StatErr   error
	ReadErr   error
	WriteErr  error
	MkdirErr  error
	writes    []string
	mkdirs    []string
	statCalls []string
}

var _ core.FileSystem = (*FaultyFS)(nil)

// NewFaultyFS wraps inner.
func NewFaultyFS(inner core.FileSystem) *FaultyFS { return &FaultyFS{FileSystem: inner} }

// Stat implements core.FileSystem.
func (f *FaultyFS) Stat(ctx context.Context, path string) (core.FileInfo, error) {
	f.mu.Lock()
	f.statCalls = append(f.statCalls, path)
	err := f.StatErr
	f.mu.Unlock()
	if err != nil {
		return core.FileInfo{}, err
	}
	return f.FileSystem.Stat(ctx, path)
}

// ReadFile implements core.FileSystem.
func (f *FaultyFS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	return f.FileSystem.ReadFile(ctx, path)
}

// WriteFile implements core.FileSystem.
func (f *FaultyFS) WriteFile(ctx context.Context, path string, data []byte) error {
	f.mu.Lock()
	f.writes = append(f.writes, path)
	err := f.WriteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.FileSystem.WriteFile(ctx, path, data)
}

// CreateDirectory implements core.FileSystem.
func (f *FaultyFS) CreateDirectory(ctx context.Context, path string) error {
	f.mu.Lock()
	f.mkdirs = append(f.mkdirs, path)
	err := f.MkdirErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.FileSystem.CreateDirectory(ctx, path)
}

// Writes returns the paths passed to WriteFile.
func (f *FaultyFS) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.writes...)
}

// Mkdirs returns the paths passed to CreateDirectory.
func (f *FaultyFS) Mkdirs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.mkdirs...)
}

// StatCalls returns the paths passed to Stat.
func (f *FaultyFS) StatCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.statCalls...)
}

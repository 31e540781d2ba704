package definition

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/internal/testutil"
	"github.com/hupe1980/fabricsync/localfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLocal(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestDetector_EmptyFolderHasNoConflicts(t *testing.T) {
	def := testutil.NewDefinitionBuilder().Part("a.json", `{"x":1}`).Build()
	got, err := NewDetector(localfs.New()).Conflicts(context.Background(), def, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetector_ReportsDifferingParts(t *testing.T) {
	dir := t.TempDir()
	writeLocal(t, dir, "same.py", "print(1)\n")
	writeLocal(t, dir, "crlf.py", "a\r\nb\r\n")
	writeLocal(t, dir, "changed.py", "print(2)\n")
	writeLocal(t, dir, "meta.json", `{"X":1}`)
	writeLocal(t, dir, "arr.json", `{"a":[2,1]}`)
	writeLocal(t, dir, "broken.json", `{"a":`)

	def := testutil.NewDefinitionBuilder().
		Part("same.py", "print(1)\n").
		Part("crlf.py", "a\nb\n").
		Part("changed.py", "print(1)\n").
		Part("meta.json", `{"x":1}`).
		Part("arr.json", `{"a":[1,2]}`).
		Part("broken.json", `{"a":1}`).
		Part("missing.py", "new").
		Build()

	got, err := NewDetector(localfs.New()).Conflicts(context.Background(), def, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"changed.py", "arr.json", "broken.json"}, got)
}

func TestDetector_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeLocal(t, dir, "a.txt", "local")
	def := testutil.NewDefinitionBuilder().Part("a.txt", "remote").Part("b.txt", "new").Build()
	d := NewDetector(localfs.New())

	first, err := d.Conflicts(context.Background(), def, dir)
	require.NoError(t, err)
	second, err := d.Conflicts(context.Background(), def, dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a.txt"}, first)
}

func TestDetector_IgnoresOtherPayloadTypes(t *testing.T) {
	dir := t.TempDir()
	writeLocal(t, dir, "a.txt", "local")
	def := testutil.NewDefinitionBuilder().TypedPart("a.txt", "remote", "Other").Build()

	got, err := NewDetector(localfs.New()).Conflicts(context.Background(), def, dir)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetector_UnstattableIsNoConflict(t *testing.T) {
	faulty := testutil.NewFaultyFS(localfs.New())
	faulty.StatErr = errors.New("access denied")
	def := testutil.NewDefinitionBuilder().Part("a.txt", "x").Build()

	got, err := NewDetector(faulty).Conflicts(context.Background(), def, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetector_ReadFailureIsError(t *testing.T) {
	dir := t.TempDir()
	writeLocal(t, dir, "a.txt", "local")
	faulty := testutil.NewFaultyFS(localfs.New())
	faulty.ReadErr = errors.New("io")

	_, err := NewDetector(faulty).Conflicts(context.Background(), testutil.NewDefinitionBuilder().Part("a.txt", "x").Build(), dir)
	assert.True(t, core.IsKind(err, core.KindFileSystem))
}

func TestDetector_DirectoryAtPartPathConflicts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a.txt"), 0o755))

	got, err := NewDetector(localfs.New()).Conflicts(context.Background(), testutil.NewDefinitionBuilder().Part("a.txt", "x").Build(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, got)
}

func TestTraversalPartsNeverTouched(t *testing.T) {
	parent := t.TempDir()
	dest := filepath.Join(parent, "dest")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	writeLocal(t, parent, "secret.txt", "do not read")

	def := testutil.NewDefinitionBuilder().
		Part("../secret.txt", "other").
		Part("../../etc/passwd", "root::0:0").
		Part("/etc/hosts", "x").
		Part("ok.txt", "fine").
		Build()

	faulty := testutil.NewFaultyFS(localfs.New())
	conflicts, err := NewDetector(faulty).Conflicts(context.Background(), def, dest)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Equal(t, []string{filepath.Join(dest, "ok.txt")}, faulty.StatCalls())

	require.NoError(t, NewWriter(faulty).Save(context.Background(), def, dest))
	assert.Equal(t, []string{filepath.Join(dest, "ok.txt")}, faulty.Writes())

	b, err := os.ReadFile(filepath.Join(parent, "secret.txt"))
	require.NoError(t, err)
	assert.Equal(t, "do not read", string(b))
}

func TestWriter_SkipsPartsBelowSymlinkedDirectory(t *testing.T) {
	outside := t.TempDir()
	dest := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(dest, "sub")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	def := testutil.NewDefinitionBuilder().
		Part("sub/x.txt", "escaped").
		Part("sub/deeper/y.txt", "escaped").
		Part("ok/z.txt", "fine").
		Build()

	require.NoError(t, NewWriter(localfs.New()).Save(context.Background(), def, dest))

	entries, err := os.ReadDir(outside)
	require.NoError(t, err)
	assert.Empty(t, entries)
	b, err := os.ReadFile(filepath.Join(dest, "ok", "z.txt"))
	require.NoError(t, err)
	assert.Equal(t, "fine", string(b))
}

func TestWriter_SaveThenDetectRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeLocal(t, dir, "a.json", "stale")
	def := testutil.NewDefinitionBuilder().
		Part("a.json", `{"x":1}`).
		Part(".platform", `{"metadata":{"type":"Notebook"}}`).
		Part("nested/deep/file.py", "print('hi')\r\n").
		TypedPart("skip.bin", "ignored", "Other").
		Build()

	require.NoError(t, NewWriter(localfs.New()).Save(ctx, def, dir))

	b, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(b))
	_, err = os.Stat(filepath.Join(dir, "skip.bin"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	conflicts, err := NewDetector(localfs.New()).Conflicts(ctx, def, dir)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestWriter_InvalidPayload(t *testing.T) {
	def := testutil.NewDefinitionBuilder().RawPart(core.DefinitionPart{Path: "a.txt", Payload: "!!!", PayloadType: core.PayloadTypeInlineBase64}).Build()
	err := NewWriter(localfs.New()).Save(context.Background(), def, t.TempDir())
	assert.True(t, core.IsKind(err, core.KindInvalidDefinition))
}

func TestWriter_PartialFailureKeepsEarlierFiles(t *testing.T) {
	dir := t.TempDir()
	// A file where a parent directory is expected makes the second part fail.
	writeLocal(t, dir, "blocker", "x")
	def := testutil.NewDefinitionBuilder().Part("first.txt", "1").Part("blocker/second.txt", "2").Build()

	err := NewWriter(localfs.New()).Save(context.Background(), def, dir)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindFileSystem))

	b, rerr := os.ReadFile(filepath.Join(dir, "first.txt"))
	require.NoError(t, rerr)
	assert.Equal(t, "1", string(b))
}

func TestReader_RoundTripsWithWriter(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	writeLocal(t, src, ".platform", `{"metadata":{}}`)
	writeLocal(t, src, "notebook-content.py", "# cell")
	writeLocal(t, src, "sub/part.json", `{"a":1}`)
	writeLocal(t, src, ".git/config", "ignored")

	def, err := NewReader(localfs.New()).Read(ctx, src)
	require.NoError(t, err)

	paths := make([]string, 0, len(def.Parts))
	for _, p := range def.Parts {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{".platform", "notebook-content.py", "sub/part.json"}, paths)

	dst := t.TempDir()
	require.NoError(t, NewWriter(localfs.New()).Save(ctx, *def, dst))
	conflicts, err := NewDetector(localfs.New()).Conflicts(ctx, *def, src)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	b, err := os.ReadFile(filepath.Join(dst, "sub", "part.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(b))
}

func TestReader_MissingFolder(t *testing.T) {
	_, err := NewReader(localfs.New()).Read(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.True(t, core.IsKind(err, core.KindFileSystem))
}

package download

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/internal/testutil"
	"github.com/hupe1980/fabricsync/localfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var item1 = testutil.Artifact("Item1", "Notebook")

type recorder struct{ steps []core.ProgressStep }

func (r *recorder) Report(s core.ProgressStep) { r.steps = append(r.steps, s) }

func TestDownload_EmptyFolderWritesWithoutPrompt(t *testing.T) {
	dir := t.TempDir()
	def := testutil.NewDefinitionBuilder().Part("a.json", `{"x":1}`).Build()

	mgr := &testutil.MockArtifactManager{}
	mgr.On("GetDefinition", mock.Anything, item1, dir, mock.Anything).Return(testutil.DefinitionResponse(def), nil).Once()
	p := &testutil.MockPrompter{}

	rec := &recorder{}
	require.NoError(t, New(mgr, localfs.New(), p).Download(context.Background(), item1, dir, rec))

	b, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(b))
	p.AssertNotCalled(t, "ShowMessage", mock.Anything, mock.Anything)
	mgr.AssertExpectations(t)

	total := 0
	for _, s := range rec.steps {
		total += s.Increment
	}
	assert.Equal(t, 100, total)
}

func TestDownload_JSONEquivalentLocalIsNoConflict(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"X":1}`), 0o644))
	def := testutil.NewDefinitionBuilder().Part("a.json", `{"x":1}`).Build()

	mgr := &testutil.MockArtifactManager{}
	mgr.On("GetDefinition", mock.Anything, item1, dir, mock.Anything).Return(testutil.DefinitionResponse(def), nil)
	p := &testutil.MockPrompter{}

	require.NoError(t, New(mgr, localfs.New(), p).Download(context.Background(), item1, dir, nil))
	p.AssertNotCalled(t, "ShowMessage", mock.Anything, mock.Anything)

	b, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(b))
}

func TestDownload_ConflictDeclinedIsCancellation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nb.py"), []byte("local edit"), 0o644))
	def := testutil.NewDefinitionBuilder().Part("nb.py", "remote").Part("new.py", "n").Build()

	mgr := &testutil.MockArtifactManager{}
	mgr.On("GetDefinition", mock.Anything, item1, dir, mock.Anything).Return(testutil.DefinitionResponse(def), nil)
	p := &testutil.MockPrompter{}
	p.On("ShowMessage", mock.Anything, mock.MatchedBy(func(m core.Message) bool {
		return m.Modal && m.Detail == "nb.py"
	})).Return(core.Choice{}, false, nil).Once()

	faulty := testutil.NewFaultyFS(localfs.New())
	err := New(mgr, faulty, p).Download(context.Background(), item1, dir, nil)

	step, ok := core.IsCancelled(err)
	require.True(t, ok)
	assert.Equal(t, StepConfirmOverwrite, step)
	assert.Empty(t, faulty.Writes())
	p.AssertExpectations(t)

	b, _ := os.ReadFile(filepath.Join(dir, "nb.py"))
	assert.Equal(t, "local edit", string(b))
}

func TestDownload_ConflictConfirmedOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("mine"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("mine"), 0o644))
	def := testutil.NewDefinitionBuilder().Part("a.txt", "theirs").Part("b.txt", "theirs").Build()

	mgr := &testutil.MockArtifactManager{}
	mgr.On("GetDefinition", mock.Anything, item1, dir, mock.Anything).Return(testutil.DefinitionResponse(def), nil)
	p := &testutil.MockPrompter{}
	p.On("ShowMessage", mock.Anything, mock.MatchedBy(func(m core.Message) bool {
		return m.Detail == "a.txt\nb.txt"
	})).Return(ChoiceOverwrite, true, nil).Once()

	require.NoError(t, New(mgr, localfs.New(), p).Download(context.Background(), item1, dir, nil))
	b, _ := os.ReadFile(filepath.Join(dir, "b.txt"))
	assert.Equal(t, "theirs", string(b))
}

func TestDownload_RemoteFailure(t *testing.T) {
	dir := t.TempDir()
	mgr := &testutil.MockArtifactManager{}
	resp := testutil.JSONResponse(http.StatusNotFound, map[string]any{
		"errorCode": "ItemNotFound",
		"message":   "The requested item was not found",
		"requestId": "req-42",
	})
	mgr.On("GetDefinition", mock.Anything, item1, dir, mock.Anything).Return(resp, nil)
	faulty := testutil.NewFaultyFS(localfs.New())

	err := New(mgr, faulty, &testutil.MockPrompter{}).Download(context.Background(), item1, dir, nil)

	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "ItemNotFound", apiErr.ErrorCode)
	assert.Equal(t, "req-42", apiErr.RequestID)
	assert.Equal(t, "Item1", apiErr.ArtifactName)
	assert.Contains(t, err.Error(), "status 404")
	assert.Empty(t, faulty.Writes())
	assert.Empty(t, faulty.StatCalls())
}

func TestDownload_RequestIDFromHeader(t *testing.T) {
	resp := &core.APIResponse{Status: 500, Body: []byte("oops"), Header: http.Header{"Requestid": []string{"hdr-1"}}}
	e := NewAPIError("getDefinition", item1, resp)
	assert.Equal(t, "hdr-1", e.RequestID)
	assert.Empty(t, e.ErrorCode)
}

func TestDownload_TransportError(t *testing.T) {
	mgr := &testutil.MockArtifactManager{}
	boom := errors.New("connection reset")
	mgr.On("GetDefinition", mock.Anything, item1, "/x", mock.Anything).Return(nil, boom)

	err := New(mgr, localfs.New(), &testutil.MockPrompter{}).Download(context.Background(), item1, "/x", nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Item1 (Notebook)")
}

func TestDownload_MalformedBody(t *testing.T) {
	mgr := &testutil.MockArtifactManager{}
	mgr.On("GetDefinition", mock.Anything, item1, "/x", mock.Anything).Return(&core.APIResponse{Status: 200, Body: []byte("<html>")}, nil)

	err := New(mgr, localfs.New(), &testutil.MockPrompter{}).Download(context.Background(), item1, "/x", nil)
	assert.True(t, core.IsKind(err, core.KindInvalidDefinition))
}

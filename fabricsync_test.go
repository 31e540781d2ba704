package fabricsync

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/fabricsync/artifact"
	"github.com/hupe1980/fabricsync/config"
	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/internal/testutil"
	"github.com/hupe1980/fabricsync/mapping"
	"github.com/hupe1980/fabricsync/settings"
	"github.com/hupe1980/fabricsync/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var item1 = testutil.Artifact("Item1", "Notebook")

type harness struct {
	mgr       *testutil.MockArtifactManager
	prompter  *testutil.MockPrompter
	workspace *testutil.MockWorkspace
	store     *settings.InMemoryStore
	settings  *settings.Manager
	sync      *Sync
}

func newHarness(t *testing.T, behavior core.SaveBehavior, mappings map[string]string) *harness {
	t.Helper()
	h := &harness{
		mgr:       &testutil.MockArtifactManager{},
		prompter:  &testutil.MockPrompter{},
		workspace: &testutil.MockWorkspace{},
		store:     settings.NewInMemoryStore(),
	}
	m, err := settings.Open(context.Background(), h.store)
	require.NoError(t, err)
	h.settings = m
	for id, dir := range mappings {
		require.NoError(t, mapping.New(m).Set(context.Background(), id, dir, "ws-1", "PROD"))
	}

	h.sync, err = New(h.mgr, h.prompter, h.workspace, func(o *Options) {
		o.Publisher = h.mgr
		o.Settings = m
		o.Config = config.NewMemoryProvider(map[string]string{config.KeySaveBehavior: string(behavior)})
	})
	require.NoError(t, err)
	return h
}

func isMenu(msg core.Message) bool {
	for _, c := range msg.Choices {
		if c.ID == workflow.ChoiceOpenCurrentWindow.ID {
			return true
		}
	}
	return false
}

func isModal(msg core.Message) bool { return msg.Modal }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestDownload_FirstTimePromptsAndRemembers(t *testing.T) {
	root := t.TempDir()
	h := newHarness(t, core.SaveBehaviorAlways, nil)
	def := testutil.NewDefinitionBuilder().Part("a.json", `{"x":1}`).Build()
	target := filepath.Join(root, item1.FolderName())

	h.prompter.On("ShowOpenDialog", mock.Anything, mock.Anything).Return(root, true, nil).Once()
	h.mgr.On("GetDefinition", mock.Anything, item1, target, mock.Anything).Return(testutil.DefinitionResponse(def), nil).Once()
	h.prompter.On("ShowMessage", mock.Anything, mock.MatchedBy(isMenu)).Return(core.Choice{}, false, nil).Once()

	out, err := h.sync.Download(context.Background(), item1, nil)
	require.NoError(t, err)
	assert.Equal(t, workflow.ActionNone, out.Action)
	require.NoError(t, out.Wait())

	assert.Equal(t, `{"x":1}`, readFile(t, filepath.Join(target, "a.json")))
	got, ok := h.sync.LocalFolder(item1.ID)
	require.True(t, ok)
	assert.Equal(t, target, got)

	entry, ok := h.sync.ArtifactForFolder(target)
	require.True(t, ok)
	assert.Equal(t, item1.ID, entry.ArtifactID)
	h.mgr.AssertExpectations(t)
}

func TestDownload_DeclinedOverwriteKeepsLocalFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), item1.FolderName())
	writeFile(t, filepath.Join(dir, "a.json"), `{"x":2}`)
	h := newHarness(t, core.SaveBehaviorAlways, map[string]string{item1.ID: dir})
	def := testutil.NewDefinitionBuilder().Part("a.json", `{"x":1}`).Build()

	h.mgr.On("GetDefinition", mock.Anything, item1, dir, mock.Anything).Return(testutil.DefinitionResponse(def), nil).Once()
	h.prompter.On("ShowMessage", mock.Anything, mock.MatchedBy(isModal)).Return(core.Choice{}, false, nil).Once()

	_, err := h.sync.Download(context.Background(), item1, nil)
	step, ok := core.IsCancelled(err)
	require.True(t, ok)
	assert.Equal(t, "confirmOverwrite", step)
	assert.Equal(t, `{"x":2}`, readFile(t, filepath.Join(dir, "a.json")))
	h.prompter.AssertNotCalled(t, "ShowOpenDialog", mock.Anything, mock.Anything)
}

func TestDownload_DismissedPickerIsCancelled(t *testing.T) {
	h := newHarness(t, core.SaveBehaviorAlways, nil)
	h.prompter.On("ShowOpenDialog", mock.Anything, mock.Anything).Return("", false, nil).Once()

	_, err := h.sync.Download(context.Background(), item1, nil)
	require.ErrorIs(t, err, core.ErrCancelled)
	h.mgr.AssertNotCalled(t, "GetDefinition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0, h.store.Saves())
}

func TestDownload_RemoteErrorPersistsNothing(t *testing.T) {
	root := t.TempDir()
	h := newHarness(t, core.SaveBehaviorAlways, nil)
	h.prompter.On("ShowOpenDialog", mock.Anything, mock.Anything).Return(root, true, nil).Once()
	h.mgr.On("GetDefinition", mock.Anything, item1, mock.Anything, mock.Anything).
		Return(testutil.JSONResponse(http.StatusForbidden, map[string]string{"errorCode": "Unauthorized", "requestId": "r-1"}), nil).Once()

	_, err := h.sync.Download(context.Background(), item1, nil)
	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	_, ok := h.sync.LocalFolder(item1.ID)
	assert.False(t, ok)
}

func TestDownload_ChangeFolderRepeatsWithPicker(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	h := newHarness(t, core.SaveBehaviorAlways, nil)
	def := testutil.NewDefinitionBuilder().Part("a.json", `{}`).Build()

	h.prompter.On("ShowOpenDialog", mock.Anything, mock.Anything).Return(first, true, nil).Once()
	h.prompter.On("ShowOpenDialog", mock.Anything, mock.Anything).Return(second, true, nil).Once()
	h.mgr.On("GetDefinition", mock.Anything, item1, mock.Anything, mock.Anything).Return(testutil.DefinitionResponse(def), nil).Twice()
	h.prompter.On("ShowMessage", mock.Anything, mock.MatchedBy(isMenu)).Return(workflow.ChoiceChangeFolder, true, nil).Once()
	h.prompter.On("ShowMessage", mock.Anything, mock.MatchedBy(isMenu)).Return(core.Choice{}, false, nil).Once()

	out, err := h.sync.Download(context.Background(), item1, nil)
	require.NoError(t, err)
	require.NoError(t, out.Wait())

	got, ok := h.sync.LocalFolder(item1.ID)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(second, item1.FolderName()), got)
	h.prompter.AssertNumberOfCalls(t, "ShowOpenDialog", 2)
}

func TestChangeLocalFolder_CopiesExistingFolder(t *testing.T) {
	old := filepath.Join(t.TempDir(), item1.FolderName())
	writeFile(t, filepath.Join(old, "notebook-content.py"), "print(1)")
	root := t.TempDir()
	h := newHarness(t, core.SaveBehaviorNever, map[string]string{item1.ID: old})

	h.prompter.On("ShowOpenDialog", mock.Anything, mock.Anything).Return(root, true, nil).Once()
	h.prompter.On("ShowMessage", mock.Anything, mock.MatchedBy(isMenu)).Return(core.Choice{}, false, nil).Once()

	out, err := h.sync.ChangeLocalFolder(context.Background(), item1, nil)
	require.NoError(t, err)
	require.NoError(t, out.Wait())

	target := filepath.Join(root, item1.FolderName())
	assert.Equal(t, "print(1)", readFile(t, filepath.Join(target, "notebook-content.py")))
	got, _ := h.sync.LocalFolder(item1.ID)
	assert.Equal(t, target, got)
	h.mgr.AssertNotCalled(t, "GetDefinition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangeLocalFolder_DeclinedReplace(t *testing.T) {
	old := filepath.Join(t.TempDir(), item1.FolderName())
	writeFile(t, filepath.Join(old, "a.txt"), "old")
	root := t.TempDir()
	writeFile(t, filepath.Join(root, item1.FolderName(), "a.txt"), "mine")
	h := newHarness(t, core.SaveBehaviorNever, map[string]string{item1.ID: old})

	h.prompter.On("ShowOpenDialog", mock.Anything, mock.Anything).Return(root, true, nil).Once()
	h.prompter.On("ShowMessage", mock.Anything, mock.MatchedBy(isModal)).Return(core.Choice{}, false, nil).Once()

	_, err := h.sync.ChangeLocalFolder(context.Background(), item1, nil)
	step, ok := core.IsCancelled(err)
	require.True(t, ok)
	assert.Equal(t, StepConfirmCopy, step)
	assert.Equal(t, "mine", readFile(t, filepath.Join(root, item1.FolderName(), "a.txt")))
	got, _ := h.sync.LocalFolder(item1.ID)
	assert.Equal(t, old, got)
}

func TestOpenLocalFolder(t *testing.T) {
	t.Run("no mapping", func(t *testing.T) {
		h := newHarness(t, core.SaveBehaviorNever, nil)
		_, err := h.sync.OpenLocalFolder(context.Background(), item1)
		require.True(t, core.IsKind(err, core.KindNotFound))
	})

	t.Run("folder gone", func(t *testing.T) {
		h := newHarness(t, core.SaveBehaviorNever, map[string]string{item1.ID: filepath.Join(t.TempDir(), "gone")})
		_, err := h.sync.OpenLocalFolder(context.Background(), item1)
		require.True(t, core.IsKind(err, core.KindNotFound))
	})

	t.Run("opens in new window", func(t *testing.T) {
		dir := t.TempDir()
		h := newHarness(t, core.SaveBehaviorAlways, map[string]string{item1.ID: dir})
		h.prompter.On("ShowMessage", mock.Anything, mock.MatchedBy(isMenu)).Return(workflow.ChoiceOpenNewWindow, true, nil).Once()
		h.workspace.On("OpenFolder", mock.Anything, dir, true).Return(nil).Once()

		out, err := h.sync.OpenLocalFolder(context.Background(), item1)
		require.NoError(t, err)
		require.NoError(t, out.Wait())
		h.workspace.AssertExpectations(t)
	})
}

func TestPublish(t *testing.T) {
	t.Run("no mapping", func(t *testing.T) {
		h := newHarness(t, core.SaveBehaviorNever, nil)
		err := h.sync.Publish(context.Background(), item1, nil)
		require.True(t, core.IsKind(err, core.KindNotFound))
	})

	t.Run("pushes folder contents", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, ".platform"), `{"metadata":{}}`)
		writeFile(t, filepath.Join(dir, "sub", "a.json"), `{}`)
		writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref")
		h := newHarness(t, core.SaveBehaviorNever, map[string]string{item1.ID: dir})

		h.mgr.On("UpdateDefinition", mock.Anything, item1, mock.MatchedBy(func(def core.ItemDefinition) bool {
			paths := map[string]bool{}
			for _, p := range def.Parts {
				paths[p.Path] = true
			}
			return len(paths) == 2 && paths[".platform"] && paths["sub/a.json"]
		})).Return(testutil.JSONResponse(http.StatusOK, map[string]any{}), nil).Once()

		require.NoError(t, h.sync.Publish(context.Background(), item1, nil))
		h.mgr.AssertExpectations(t)
	})

	t.Run("remote failure", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.json"), `{}`)
		h := newHarness(t, core.SaveBehaviorNever, map[string]string{item1.ID: dir})
		h.mgr.On("UpdateDefinition", mock.Anything, item1, mock.Anything).
			Return(testutil.JSONResponse(http.StatusBadRequest, map[string]string{"errorCode": "InvalidDefinition"}), nil).Once()

		err := h.sync.Publish(context.Background(), item1, nil)
		var apiErr *core.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "InvalidDefinition", apiErr.ErrorCode)
	})

	t.Run("without publisher", func(t *testing.T) {
		s, err := New(&testutil.MockArtifactManager{}, &testutil.MockPrompter{}, &testutil.MockWorkspace{})
		require.NoError(t, err)
		require.Error(t, s.Publish(context.Background(), item1, nil))
	})
}

func TestSwitchEnvironment_ScopesReverseLookup(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, core.SaveBehaviorNever, map[string]string{item1.ID: dir})
	require.NoError(t, h.sync.SwitchTenant(context.Background(), &core.TenantSettings{TenantID: "t-1"}))

	var seen []settings.ChangeKind
	h.sync.OnSettingsChange(func(c settings.Change, _ core.Settings) { seen = append(seen, c.Kind) })

	_, ok := h.sync.ArtifactForFolder(dir)
	require.True(t, ok)

	require.NoError(t, h.sync.SwitchEnvironment(context.Background(), "msit"))
	assert.Equal(t, "MSIT", h.sync.Environment())
	assert.Nil(t, h.settings.Snapshot().CurrentTenant)
	_, ok = h.sync.ArtifactForFolder(dir)
	assert.False(t, ok)
	assert.Equal(t, []settings.ChangeKind{settings.ChangeEnvironment}, seen)
}

func TestRoundTrip_DownloadEditPublish(t *testing.T) {
	root := t.TempDir()
	remote := artifact.NewInMemoryManager()
	remote.Put(item1, testutil.NewDefinitionBuilder().Part("notebook-content.py", "print(1)").Build())

	prompter := &testutil.MockPrompter{}
	prompter.On("ShowOpenDialog", mock.Anything, mock.Anything).Return(root, true, nil).Once()
	prompter.On("ShowMessage", mock.Anything, mock.MatchedBy(isMenu)).Return(core.Choice{}, false, nil).Once()

	s, err := New(remote, prompter, &testutil.MockWorkspace{}, func(o *Options) {
		o.Publisher = remote
		o.Config = config.NewMemoryProvider(map[string]string{config.KeySaveBehavior: "always"})
	})
	require.NoError(t, err)

	out, err := s.Download(context.Background(), item1, nil)
	require.NoError(t, err)
	require.NoError(t, out.Wait())

	dir, ok := s.LocalFolder(item1.ID)
	require.True(t, ok)
	writeFile(t, filepath.Join(dir, "notebook-content.py"), "print(2)")

	require.NoError(t, s.Publish(context.Background(), item1, nil))
	def, _ := remote.Definition(item1.WorkspaceID, item1.ID)
	require.Len(t, def.Parts, 1)
	content, err := def.Parts[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, "print(2)", string(content))
}

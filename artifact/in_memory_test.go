package artifact

import (
	"context"
	"net/http"
	"testing"

	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var item1 = testutil.Artifact("Item1", "Notebook")

func TestInMemoryManager_DefinitionIsolation(t *testing.T) {
	m := NewInMemoryManager()
	def := testutil.NewDefinitionBuilder().Part("a.json", "{}").Build()
	m.Put(item1, def)

	// mutate the original parts
	def.Parts[0].Path = "changed"

	resp, err := m.GetDefinition(context.Background(), item1, "", nil)
	require.NoError(t, err)
	require.True(t, resp.Succeeded())
	var body struct {
		Definition core.ItemDefinition `json:"definition"`
	}
	require.NoError(t, resp.Decode(&body))
	assert.Equal(t, "a.json", body.Definition.Parts[0].Path)

	got, ok := m.Definition(item1.WorkspaceID, item1.ID)
	require.True(t, ok)
	got.Parts[0].Path = "x"
	again, _ := m.Definition(item1.WorkspaceID, item1.ID)
	assert.Equal(t, "a.json", again.Parts[0].Path)
}

func TestInMemoryManager_NotFoundCarriesErrorBody(t *testing.T) {
	m := NewInMemoryManager()
	resp, err := m.GetItem(context.Background(), "ws-1", "missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	var body map[string]string
	require.NoError(t, resp.Decode(&body))
	assert.Equal(t, "ItemNotFound", body["errorCode"])
	assert.NotEmpty(t, body["requestId"])
}

func TestInMemoryManager_CreateListDelete(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryManager()

	resp, err := m.CreateItem(ctx, "ws-1", core.CreateItemRequest{DisplayName: "B", Type: "Notebook"})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Status)
	var created core.Artifact
	require.NoError(t, resp.Decode(&created))
	assert.NotEmpty(t, created.ID)

	resp, err = m.CreateItem(ctx, "ws-1", core.CreateItemRequest{DisplayName: "B", Type: "Notebook"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Status)

	m.Put(core.Artifact{ID: "a", DisplayName: "A", Type: "Report", WorkspaceID: "ws-1"}, core.ItemDefinition{})

	resp, err = m.ListItems(ctx, "ws-1")
	require.NoError(t, err)
	var page struct {
		Value []core.Artifact `json:"value"`
	}
	require.NoError(t, resp.Decode(&page))
	require.Len(t, page.Value, 2)
	assert.Equal(t, "A", page.Value[0].DisplayName)

	resp, err = m.DeleteItem(ctx, created)
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	resp, err = m.DeleteItem(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestInMemoryManager_UpdateDefinition(t *testing.T) {
	m := NewInMemoryManager()
	m.Put(item1, core.ItemDefinition{})

	def := testutil.NewDefinitionBuilder().Part("b.py", "print(1)").Build()
	resp, err := m.UpdateDefinition(context.Background(), item1, def)
	require.NoError(t, err)
	require.True(t, resp.Succeeded())

	got, _ := m.Definition(item1.WorkspaceID, item1.ID)
	require.Len(t, got.Parts, 1)
	assert.Equal(t, "b.py", got.Parts[0].Path)

	resp, err = m.UpdateDefinition(context.Background(), testutil.Artifact("Other", "Notebook"), def)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/adapter/csvadapter"
	"bundlebase.dev/bundlebase/internal/function"
	"bundlebase.dev/bundlebase/internal/objstore"
	"bundlebase.dev/bundlebase/internal/ops"
	"bundlebase.dev/bundlebase/internal/types"
)

func strPtr(s string) *string { return &s }

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	return New(objstore.NewFileStore(root)), root
}

func TestWriteProducesExpectedFileName(t *testing.T) {
	store, root := newTestStore(t)
	ctx := context.Background()

	m := &Manifest{Message: "first commit", Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Version: 1}
	key, err := store.Write(ctx, m)
	require.NoError(t, err)

	assert.Regexp(t, `^_manifest/00001[0-9a-f]{12}\.yaml$`, key)
	assert.FileExists(t, filepath.Join(root, key))
}

func TestWriteThenReadRoundtrips(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	m := &Manifest{
		Message:   "commit",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Version:   1,
		Changes: []Change{
			{ID: "c1", Description: "attach", Operations: []ops.Operation{&ops.SetName{S: "widgets"}}},
		},
	}
	key, err := store.Write(ctx, m)
	require.NoError(t, err)

	loaded, err := store.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, m.Hash, loaded.Hash)
	assert.Equal(t, "commit", loaded.Message)
	require.Len(t, loaded.Changes, 1)
	require.Len(t, loaded.Changes[0].Operations, 1)

	setName, ok := loaded.Changes[0].Operations[0].(*ops.SetName)
	require.True(t, ok)
	assert.Equal(t, "widgets", setName.S)
}

func TestListExcludesViewSubtrees(t *testing.T) {
	store, root := newTestStore(t)
	ctx := context.Background()

	_, err := store.Write(ctx, &Manifest{Message: "m1", Timestamp: time.Now().UTC(), Version: 1})
	require.NoError(t, err)

	viewStore := New(objstore.NewFileStore(filepath.Join(root, "_manifest", "view_x1")))
	_, err = viewStore.Write(ctx, &Manifest{Message: "view commit", Timestamp: time.Now().UTC(), Version: 1})
	require.NoError(t, err)

	refs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestHashIsStableAcrossRewrite(t *testing.T) {
	m1 := Manifest{Message: "x", Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Version: 1}
	h1, err := computeHash(m1)
	require.NoError(t, err)

	m2 := Manifest{Message: "x", Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Version: 1}
	h2, err := computeHash(m2)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 12)
}

func testDeps(t *testing.T, resolver RootResolver) Dependencies {
	t.Helper()
	registry := adapter.NewRegistry()
	registry.RegisterExtension(".csv", func(_ context.Context, sourceURL, _ string) (adapter.DataAdapter, error) {
		return csvadapter.New(sourceURL), nil
	})
	return Dependencies{Functions: function.New(), Adapters: registry, Resolver: resolver}
}

func TestLoadEmptyRootReturnsFreshState(t *testing.T) {
	root := t.TempDir()
	deps := testDeps(t, func(url string) (objstore.BlobStore, error) {
		return objstore.NewFileStore(root), nil
	})

	loaded, err := Load(context.Background(), "file://"+root, deps)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), loaded.Version)
	assert.Equal(t, 0, loaded.State.Schema().Len())
}

func TestLoadReplaysOperationsInOrder(t *testing.T) {
	root := t.TempDir()
	store := New(objstore.NewFileStore(root))
	ctx := context.Background()

	m := &Manifest{
		Message:   "commit",
		Timestamp: time.Now().UTC(),
		Version:   1,
		Changes: []Change{
			{ID: "c1", Operations: []ops.Operation{&ops.SetName{S: "widgets"}, &ops.SetDescription{S: "desc"}}},
		},
	}
	_, err := store.Write(ctx, m)
	require.NoError(t, err)

	deps := testDeps(t, func(url string) (objstore.BlobStore, error) {
		return objstore.NewFileStore(root), nil
	})
	loaded, err := Load(ctx, "file://"+root, deps)
	require.NoError(t, err)
	assert.Equal(t, "widgets", loaded.State.Name())
	assert.Equal(t, "desc", loaded.State.Description())
	assert.Equal(t, uint64(1), loaded.Version)
}

func TestLoadFollowsFromChain(t *testing.T) {
	parentRoot := t.TempDir()
	childRoot := t.TempDir()
	ctx := context.Background()

	parentStore := New(objstore.NewFileStore(parentRoot))
	_, err := parentStore.Write(ctx, &Manifest{
		Message: "parent", Timestamp: time.Now().UTC(), Version: 1,
		Changes: []Change{{ID: "c1", Operations: []ops.Operation{&ops.SetName{S: "parent-name"}}}},
	})
	require.NoError(t, err)

	childStore := New(objstore.NewFileStore(childRoot))
	_, err = childStore.Write(ctx, &Manifest{
		Message: "child", Timestamp: time.Now().UTC(), Version: 1, From: strPtr("file://" + parentRoot),
		Changes: []Change{{ID: "c2", Operations: []ops.Operation{&ops.SetDescription{S: "child-desc"}}}},
	})
	require.NoError(t, err)

	deps := testDeps(t, func(url string) (objstore.BlobStore, error) {
		path := url
		if len(path) >= 7 && path[:7] == "file://" {
			path = path[7:]
		}
		return objstore.NewFileStore(path), nil
	})

	loaded, err := Load(ctx, "file://"+childRoot, deps)
	require.NoError(t, err)
	assert.Equal(t, "parent-name", loaded.State.Name())
	assert.Equal(t, "child-desc", loaded.State.Description())
}

func TestLoadDetectsCycle(t *testing.T) {
	root := t.TempDir()
	store := New(objstore.NewFileStore(root))
	ctx := context.Background()

	selfURL := "file://" + root
	_, err := store.Write(ctx, &Manifest{
		Message: "self-referential", Timestamp: time.Now().UTC(), Version: 1, From: strPtr(selfURL),
	})
	require.NoError(t, err)

	deps := testDeps(t, func(url string) (objstore.BlobStore, error) {
		return objstore.NewFileStore(root), nil
	})

	_, err = Load(ctx, selfURL, deps)
	require.Error(t, err)
}

func TestAttachBlockReplayResolvesAdapter(t *testing.T) {
	root := t.TempDir()
	csvPath := filepath.Join(root, "data.csv")
	writeCSVFixture(t, csvPath)

	store := New(objstore.NewFileStore(root))
	ctx := context.Background()

	attach := &ops.AttachBlock{
		SourceURL: csvPath,
		BlockID:   "b1",
		Version:   "v1",
		NumRows:   2,
		Schema:    types.NewSchema(types.Field{Name: "id", Type: types.FieldType{Kind: types.Int64}}),
	}
	_, err := store.Write(ctx, &Manifest{
		Message: "attach", Timestamp: time.Now().UTC(), Version: 1,
		Changes: []Change{{ID: "c1", Operations: []ops.Operation{attach}}},
	})
	require.NoError(t, err)

	deps := testDeps(t, func(url string) (objstore.BlobStore, error) {
		return objstore.NewFileStore(root), nil
	})
	loaded, err := Load(ctx, "file://"+root, deps)
	require.NoError(t, err)
	assert.True(t, loaded.State.Schema().Has("id"))
	assert.Len(t, loaded.State.Blocks(), 1)
}

func writeCSVFixture(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("id\n1\n2\n"), 0o644))
}

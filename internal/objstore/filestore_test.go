package objstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorePutGet(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, fs.Put(ctx, "a/b.txt", []byte("hello")))

	data, err := fs.Get(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFileStoreGetMissing(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	_, err := fs.Get(context.Background(), "missing.txt")
	require.Error(t, err)

	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestFileStorePutAtomicLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, fs.PutAtomic(ctx, "manifest/00001abc.yaml", []byte("body")))

	data, err := fs.Get(ctx, "manifest/00001abc.yaml")
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "manifest"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestFileStoreList(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, fs.Put(ctx, "_manifest/00001abc.yaml", []byte("a")))
	require.NoError(t, fs.Put(ctx, "_manifest/00002def.yaml", []byte("b")))
	require.NoError(t, fs.Put(ctx, "_manifest/view_x1/00001zzz.yaml", []byte("c")))

	infos, err := fs.List(ctx, "_manifest")
	require.NoError(t, err)

	var keys []string
	for _, i := range infos {
		keys = append(keys, i.Key)
	}
	assert.ElementsMatch(t, []string{"_manifest/00001abc.yaml", "_manifest/00002def.yaml"}, keys,
		"List must not recurse into view_* subdirectories")
}

func TestFileStoreReader(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)
	ctx := context.Background()
	require.NoError(t, fs.Put(ctx, "block.csv", []byte("1,2,3")))

	r, err := fs.Reader(ctx, "block.csv")
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "1,2,3", string(data))
}

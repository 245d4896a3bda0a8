package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundlebase.dev/bundlebase/internal/adapter/csvadapter"
	"bundlebase.dev/bundlebase/internal/function"
	"bundlebase.dev/bundlebase/internal/manifest"
	"bundlebase.dev/bundlebase/internal/objstore"
	"bundlebase.dev/bundlebase/internal/ops"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

// countingStore wraps a BlobStore to count Get calls, used to assert the
// decode cache actually spares a repeated lookup from touching the store.
type countingStore struct {
	objstore.BlobStore
	gets int
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets++
	return c.BlobStore.Get(ctx, key)
}

func TestExtractPredicatesSimpleConjunction(t *testing.T) {
	preds := extractPredicates("id = $1 AND status IN ($2, $3) AND score >= $4", []interface{}{int64(7), "ok", "done", int64(10)})
	require.Len(t, preds, 3)
	assert.Equal(t, "id", preds[0].Column)
	assert.Equal(t, types.PredicateExact, preds[0].Kind)
	assert.Equal(t, "status", preds[1].Column)
	assert.Equal(t, types.PredicateIn, preds[1].Kind)
	assert.Equal(t, "score", preds[2].Column)
	assert.True(t, preds[2].MinInclusive)
}

func TestExtractIgnoresUnrecognizedShapes(t *testing.T) {
	preds := extractPredicates("lower(name) = $1", []interface{}{"x"})
	assert.Empty(t, preds)
}

func TestProviderExtractFromFilterOp(t *testing.T) {
	p := &Provider{}
	op := &ops.Filter{SQLExpr: "id = $1", Params: []interface{}{int64(3)}}
	preds := p.Extract(op)
	require.Len(t, preds, 1)
	assert.Equal(t, "id", preds[0].Column)

	assert.Empty(t, p.Extract(&ops.Select{}))
}

func TestProviderScanNarrowsToIndexedRowIDs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "block.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("id,name\n1,a\n2,b\n3,c\n4,d\n"), 0o644))
	csvSrc := csvadapter.New(csvPath)

	blockID := types.ObjectId("block-a")
	version := "v1"
	scan, err := csvSrc.Scan(ctx, nil, nil)
	require.NoError(t, err)

	result, err := Build(ctx, "id", []BuildSource{{
		Block: types.VersionedBlockId{BlockID: blockID, Version: version},
		Scan:  scan,
	}})
	require.NoError(t, err)

	indexPath := "_index/idx1/build.bin"
	store := objstore.NewFileStore(dir)
	require.NoError(t, store.Put(ctx, indexPath, result.Bytes))

	st := state.New(function.New())
	st.SetIndexDefinition(types.IndexDefinition{
		ID:     types.ObjectId("idx1"),
		Column: "id",
		IndexedBlocks: []types.IndexedBlockRef{
			{Block: types.VersionedBlockId{BlockID: blockID, Version: version}, Path: indexPath},
		},
	})

	resolver := func(rootURL string) (objstore.BlobStore, error) { return store, nil }
	cache, err := newMemoryCache(10)
	require.NoError(t, err)
	provider := NewProvider(dir, manifest.RootResolver(resolver), cache, st)

	block := state.Block{ID: blockID, Version: version, Adapter: csvSrc}
	hints := []types.IndexPredicate{types.NewExactPredicate("id", types.NewInt64Value(3))}

	source, err := provider.Scan(ctx, block, hints)
	require.NoError(t, err)

	stream, err := source.Scan(ctx, planexec.ScanSpec{})
	require.NoError(t, err)
	defer stream.Close()

	var total int
	for {
		batch, err := stream.Next(ctx)
		if err != nil {
			break
		}
		total += batch.Rows
	}
	assert.Equal(t, 1, total)
}

func TestProviderNarrowConsultsCacheOnRepeatedLookup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "block.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("id,name\n1,a\n2,b\n3,c\n4,d\n"), 0o644))
	csvSrc := csvadapter.New(csvPath)

	blockID := types.ObjectId("block-a")
	version := "v1"
	scan, err := csvSrc.Scan(ctx, nil, nil)
	require.NoError(t, err)

	result, err := Build(ctx, "id", []BuildSource{{
		Block: types.VersionedBlockId{BlockID: blockID, Version: version},
		Scan:  scan,
	}})
	require.NoError(t, err)

	indexPath := "_index/idx1/build.bin"
	backing := &countingStore{BlobStore: objstore.NewFileStore(dir)}
	require.NoError(t, backing.Put(ctx, indexPath, result.Bytes))

	st := state.New(function.New())
	st.SetIndexDefinition(types.IndexDefinition{
		ID:     types.ObjectId("idx1"),
		Column: "id",
		IndexedBlocks: []types.IndexedBlockRef{
			{Block: types.VersionedBlockId{BlockID: blockID, Version: version}, Path: indexPath},
		},
	})

	resolver := func(rootURL string) (objstore.BlobStore, error) { return backing, nil }
	cache, err := newMemoryCache(10)
	require.NoError(t, err)
	provider := NewProvider(dir, manifest.RootResolver(resolver), cache, st)

	block := state.Block{ID: blockID, Version: version, Adapter: csvSrc}
	hints := []types.IndexPredicate{types.NewExactPredicate("id", types.NewInt64Value(3))}

	_, ok := provider.narrow(ctx, block, hints)
	require.True(t, ok)
	assert.Equal(t, 1, backing.gets, "first lookup decodes from the store")

	rowIDs, ok := provider.narrow(ctx, block, hints)
	require.True(t, ok)
	assert.Len(t, rowIDs, 1)
	assert.Equal(t, 1, backing.gets, "repeated identical lookup must be served from the cache, not the store")
}

func TestProviderScanFallsBackWithoutIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "block.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("id,name\n1,a\n2,b\n"), 0o644))
	csvSrc := csvadapter.New(csvPath)

	st := state.New(function.New())
	resolver := func(rootURL string) (objstore.BlobStore, error) { return objstore.NewFileStore(dir), nil }
	cache, err := newMemoryCache(10)
	require.NoError(t, err)
	provider := NewProvider(dir, manifest.RootResolver(resolver), cache, st)

	block := state.Block{ID: "block-a", Version: "v1", Adapter: csvSrc}
	source, err := provider.Scan(ctx, block, nil)
	require.NoError(t, err)
	_, ok := source.(*narrowedSource)
	assert.False(t, ok, "no hints should leave the scan unwrapped")
}

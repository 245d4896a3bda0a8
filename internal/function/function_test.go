package function

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

type fixedImpl struct {
	pages []planexec.Batch
}

func (f *fixedImpl) Next(page uint64) (planexec.Batch, bool, error) {
	if page >= uint64(len(f.pages)) {
		return planexec.Batch{}, false, nil
	}
	return f.pages[page], true, nil
}

func testSchema() types.Schema {
	return types.NewSchema(types.Field{Name: "n", Type: types.FieldType{Kind: types.Int64}})
}

func TestDeclareThenSetImpl(t *testing.T) {
	r := New()
	r.Declare("series", testSchema())

	schema, ok := r.Schema("series")
	require.True(t, ok)
	assert.Equal(t, 1, schema.Len())

	err := r.SetImpl("series", &fixedImpl{pages: []planexec.Batch{{Rows: 3}}})
	require.NoError(t, err)
}

func TestSetImplWithoutDeclareFails(t *testing.T) {
	r := New()
	err := r.SetImpl("missing", &fixedImpl{})
	require.Error(t, err)

	kind, ok := bberr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, bberr.ConfigMissing, kind)
}

func TestNextWithoutImplIsUnknownFunctionImpl(t *testing.T) {
	r := New()
	r.Declare("series", testSchema())

	_, _, err := r.Next("series", 0)
	require.Error(t, err)

	kind, ok := bberr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, bberr.ConfigMissing, kind)
}

func TestNextPaginatesUntilExhausted(t *testing.T) {
	r := New()
	r.Declare("series", testSchema())
	require.NoError(t, r.SetImpl("series", &fixedImpl{pages: []planexec.Batch{{Rows: 2}, {Rows: 2}}}))

	batch, more, err := r.Next("series", 0)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, 2, batch.Rows)

	_, more, err = r.Next("series", 1)
	require.NoError(t, err)
	assert.True(t, more)

	_, more, err = r.Next("series", 2)
	require.NoError(t, err)
	assert.False(t, more)
}

func TestLastPageWithoutCursorStore(t *testing.T) {
	r := New()
	_, ok := r.LastPage("series")
	assert.False(t, ok)
}

func TestWithCursorStoreTracksProgress(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cursors.bolt")
	r := New()
	r.Declare("series", testSchema())
	require.NoError(t, r.SetImpl("series", &fixedImpl{pages: []planexec.Batch{{Rows: 1}, {Rows: 1}}}))
	require.NoError(t, WithCursorStore(r, dbPath))

	_, _, err := r.Next("series", 0)
	require.NoError(t, err)
	_, _, err = r.Next("series", 1)
	require.NoError(t, err)

	last, ok := r.LastPage("series")
	require.True(t, ok)
	assert.Equal(t, uint64(1), last)
}

package jsonadapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundlebase.dev/bundlebase/internal/types"
)

func writeJSON(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSchemaInferenceFromUnion(t *testing.T) {
	path := writeJSON(t, `[{"id": 1, "name": "a"}, {"id": 2, "active": true}]`)
	a := New(path)

	schema, err := a.Schema(context.Background())
	require.NoError(t, err)

	assert.True(t, schema.Has("id"))
	assert.True(t, schema.Has("name"))
	assert.True(t, schema.Has("active"))

	idField, _ := schema.Field("id")
	assert.Equal(t, types.Float64, idField.Type.Kind)
}

func TestApproxRowCount(t *testing.T) {
	path := writeJSON(t, `[{"id": 1}, {"id": 2}, {"id": 3}]`)
	a := New(path)

	n, err := a.ApproxRowCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestScanProducesColumns(t *testing.T) {
	path := writeJSON(t, `[{"id": 1}, {"id": 2}]`)
	a := New(path)

	source, err := a.Scan(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, source.Schema().Len())
}

func TestMalformedJSONErrors(t *testing.T) {
	path := writeJSON(t, `not json`)
	a := New(path)

	_, err := a.Schema(context.Background())
	assert.Error(t, err)
}

package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"bundlebase.dev/bundlebase/internal/adapter/csvadapter"
	"bundlebase.dev/bundlebase/internal/function"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

func freshState() *state.BundleState {
	return state.New(function.New())
}

func schemaOf(names ...string) types.Schema {
	fields := make([]types.Field, len(names))
	for i, n := range names {
		fields[i] = types.Field{Name: n, Type: types.FieldType{Kind: types.Int64}}
	}
	return types.NewSchema(fields...)
}

func TestAttachBlockUnionsSchemaAndRowCount(t *testing.T) {
	s := freshState()
	op := &AttachBlock{
		SourceURL: "file://a.csv",
		BlockID:   "b1",
		Version:   "v1",
		NumRows:   10,
		Schema:    schemaOf("id", "name"),
	}
	op.BindAdapter(csvadapter.New("a.csv"))

	require.NoError(t, op.Check(s))
	require.NoError(t, op.Reconfigure(s))

	assert.Equal(t, uint64(10), s.RowCount().Value)
	assert.False(t, s.RowCount().Approximate)
	assert.True(t, s.Schema().Has("id"))
	assert.Len(t, s.Blocks(), 1)
}

func TestAttachBlockRejectsTypeMismatch(t *testing.T) {
	s := freshState()
	s.SetSchema(schemaOf("id"))

	mismatched := types.NewSchema(types.Field{Name: "id", Type: types.FieldType{Kind: types.Utf8}})
	op := &AttachBlock{SourceURL: "file://b.csv", BlockID: "b2", Version: "v1", Schema: mismatched}
	op.BindAdapter(csvadapter.New("b.csv"))

	err := op.Check(s)
	assert.NoError(t, err) // Check doesn't validate cross-schema compatibility, Reconfigure does
	err = op.Reconfigure(s)
	assert.Error(t, err)
}

func TestFilterMarksApproximate(t *testing.T) {
	s := freshState()
	s.SetRowCount(types.RowCountEstimate{Value: 100})

	op := &Filter{SQLExpr: "age > $1", Params: []interface{}{18}}
	require.NoError(t, op.Check(s))
	require.NoError(t, op.Reconfigure(s))

	assert.True(t, s.RowCount().Approximate)
	assert.Equal(t, uint64(100), s.RowCount().Value)
}

func TestFilterRejectsArityMismatch(t *testing.T) {
	op := &Filter{SQLExpr: "age > $1 AND age < $2", Params: []interface{}{18}}
	assert.Error(t, op.Check(freshState()))
}

func TestSelectProjectsSimpleColumnList(t *testing.T) {
	s := freshState()
	s.SetSchema(schemaOf("id", "name", "age"))

	op := &Select{SQLOrColumns: "id, name AS full_name"}
	require.NoError(t, op.Check(s))
	require.NoError(t, op.Reconfigure(s))

	assert.Equal(t, []string{"id", "full_name"}, s.Schema().Names())
}

func TestSelectLeavesSchemaForArbitraryExpression(t *testing.T) {
	s := freshState()
	s.SetSchema(schemaOf("id"))

	op := &Select{SQLOrColumns: "id + 1"}
	require.NoError(t, op.Reconfigure(s))
	assert.Equal(t, []string{"id"}, s.Schema().Names())
}

func TestRemoveColumnsRejectsUnknown(t *testing.T) {
	s := freshState()
	s.SetSchema(schemaOf("id"))

	op := &RemoveColumns{Names: []string{"missing"}}
	assert.Error(t, op.Check(s))
}

func TestRenameColumnCheckRejectsCollision(t *testing.T) {
	s := freshState()
	s.SetSchema(schemaOf("id", "name"))

	op := &RenameColumn{From: "id", To: "name"}
	assert.Error(t, op.Check(s))
}

func TestJoinRequiresColumnsFromBothSides(t *testing.T) {
	s := freshState()
	s.SetSchema(schemaOf("id", "customer_id"))

	op := &Join{Name: "orders", SourceURL: "file://orders.csv", Predicate: "customer_id = orders.id"}
	op.BindRightSchema(schemaOf("id"))

	require.NoError(t, op.Check(s))
	require.NoError(t, op.Reconfigure(s))

	assert.True(t, s.Schema().Has("orders.id"))
	assert.True(t, s.RowCount().Approximate)
}

func TestJoinRejectsPredicateMissingRightColumn(t *testing.T) {
	s := freshState()
	s.SetSchema(schemaOf("id"))

	op := &Join{Name: "orders", SourceURL: "file://orders.csv", Predicate: "id = id"}
	op.BindRightSchema(schemaOf("other"))

	assert.Error(t, op.Check(s))
}

func TestDefineFunctionDeclaresInRegistry(t *testing.T) {
	registry := function.New()
	s := state.New(registry)

	op := &DefineFunction{Name: "series", OutputSchema: schemaOf("n")}
	require.NoError(t, op.Check(s))
	require.NoError(t, op.Reconfigure(s))

	schema, ok := registry.Schema("series")
	require.True(t, ok)
	assert.True(t, schema.Has("n"))
}

func TestCreateIndexThenIndexBlocksThenDropIndex(t *testing.T) {
	s := freshState()
	s.SetSchema(schemaOf("age"))

	create := &CreateIndex{Column: "age", ID: "idx1"}
	require.NoError(t, create.Check(s))
	require.NoError(t, create.Reconfigure(s))

	indexBlocks := &IndexBlocks{
		IndexID:     "idx1",
		Blocks:      []types.VersionedBlockId{{BlockID: "b1", Version: "v1"}},
		LayoutPath:  "idx_idx1_abc.idx",
		Cardinality: 42,
	}
	require.NoError(t, indexBlocks.Check(s))
	require.NoError(t, indexBlocks.Reconfigure(s))

	def, ok := s.IndexDefinition("idx1")
	require.True(t, ok)
	assert.Len(t, def.IndexedBlocks, 1)

	drop := &DropIndex{ID: "idx1"}
	require.NoError(t, drop.Check(s))
	require.NoError(t, drop.Reconfigure(s))
	_, ok = s.IndexDefinition("idx1")
	assert.False(t, ok)
}

func TestAttachViewRejectsDuplicateName(t *testing.T) {
	s := freshState()
	op := &AttachView{Name: "recent", ViewID: "v1"}
	require.NoError(t, op.Check(s))
	require.NoError(t, op.Reconfigure(s))

	dup := &AttachView{Name: "recent", ViewID: "v2"}
	assert.Error(t, dup.Check(s))
}

func TestMarshalUnmarshalOperationRoundtrip(t *testing.T) {
	op := &Filter{SQLExpr: "age > $1", Params: []interface{}{21}}
	encoded, err := MarshalOperation(op)
	require.NoError(t, err)

	raw, err := yaml.Marshal(encoded)
	require.NoError(t, err)

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal(raw, &node))
	require.Len(t, node.Content, 1)

	decoded, err := UnmarshalOperation(node.Content[0])
	require.NoError(t, err)

	filter, ok := decoded.(*Filter)
	require.True(t, ok)
	assert.Equal(t, "age > $1", filter.SQLExpr)
}

func TestUnmarshalOperationUnknownTypeFails(t *testing.T) {
	raw := []byte("type: bogus\n")
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal(raw, &node))

	_, err := UnmarshalOperation(node.Content[0])
	assert.Error(t, err)
}

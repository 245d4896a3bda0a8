package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewObjectIdUnique(t *testing.T) {
	a := NewObjectId()
	b := NewObjectId()
	assert.NotEqual(t, a, b)
	assert.Len(t, string(a), 12)
}

func TestSchemaInsertionOrderAndDedup(t *testing.T) {
	s := NewSchema(
		Field{Name: "id", Type: FieldType{Kind: Int64}},
		Field{Name: "name", Type: FieldType{Kind: Utf8}},
		Field{Name: "id", Type: FieldType{Kind: Float64}}, // duplicate, ignored
	)

	assert.Equal(t, []string{"id", "name"}, s.Names())
	f, ok := s.Field("id")
	assert.True(t, ok)
	assert.Equal(t, Int64, f.Type.Kind)
}

func TestSchemaWithoutColumns(t *testing.T) {
	s := NewSchema(
		Field{Name: "a", Type: FieldType{Kind: Int64}},
		Field{Name: "b", Type: FieldType{Kind: Utf8}},
	)
	out := s.WithoutColumns("a")
	assert.Equal(t, []string{"b"}, out.Names())
	assert.False(t, out.Has("a"))
}

func TestSchemaRenameColumn(t *testing.T) {
	s := NewSchema(Field{Name: "old", Type: FieldType{Kind: Int64}})
	out := s.RenameColumn("old", "new")
	assert.True(t, out.Has("new"))
	assert.False(t, out.Has("old"))
}

func TestSchemaUnionMarksNullable(t *testing.T) {
	left := NewSchema(Field{Name: "a", Type: FieldType{Kind: Int64}})
	right := NewSchema(
		Field{Name: "a", Type: FieldType{Kind: Int64}},
		Field{Name: "b", Type: FieldType{Kind: Utf8}},
	)

	union := left.Union(right)
	assert.Equal(t, []string{"a", "b"}, union.Names())
	b, _ := union.Field("b")
	assert.True(t, b.Type.Nullable)
}

func TestRowIdLess(t *testing.T) {
	a := RowId{BlockID: "block-a", Offset: 5}
	b := RowId{BlockID: "block-a", Offset: 10}
	c := RowId{BlockID: "block-b", Offset: 0}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
}

func TestRowCountEstimateAdd(t *testing.T) {
	a := RowCountEstimate{Value: 10}
	b := RowCountEstimate{Value: 5, Approximate: true}

	sum := a.Add(b)
	assert.Equal(t, uint64(15), sum.Value)
	assert.True(t, sum.Approximate)
}

func TestRowCountEstimateAsApproximate(t *testing.T) {
	e := RowCountEstimate{Value: 42}
	out := e.AsApproximate()
	assert.Equal(t, uint64(42), out.Value)
	assert.True(t, out.Approximate)
}

func TestIndexedValueCompareSameKind(t *testing.T) {
	a := NewInt64Value(1)
	b := NewInt64Value(2)

	c, ok := a.Compare(b)
	assert.True(t, ok)
	assert.Equal(t, -1, c)
}

func TestIndexedValueCompareCrossKindNeverMatches(t *testing.T) {
	a := NewInt64Value(1)
	b := NewUtf8Value("1")

	_, ok := a.Compare(b)
	assert.False(t, ok)
	assert.False(t, a.Equal(b))
}

func TestIndexedValueFloatTotalOrder(t *testing.T) {
	nan := NewFloat64Value(nanValue())
	one := NewFloat64Value(1.0)

	c, ok := nan.Compare(one)
	assert.True(t, ok)
	assert.Equal(t, 1, c, "NaN must sort last")

	negZero := NewFloat64Value(math.Copysign(0, -1))
	posZero := NewFloat64Value(0)
	assert.True(t, negZero.Equal(posZero))
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestNewExactPredicate(t *testing.T) {
	p := NewExactPredicate("id", NewInt64Value(5))
	assert.Equal(t, PredicateExact, p.Kind)
	assert.Equal(t, "id", p.Column)
	assert.Equal(t, int64(5), p.Exact.Int)
}

func TestNewInPredicate(t *testing.T) {
	p := NewInPredicate("id", NewInt64Value(1), NewInt64Value(2))
	assert.Equal(t, PredicateIn, p.Kind)
	assert.Len(t, p.In, 2)
}

func TestNewRangePredicate(t *testing.T) {
	min := NewInt64Value(1)
	max := NewInt64Value(10)
	p := NewRangePredicate("id", &min, &max, true, false)

	assert.Equal(t, PredicateRange, p.Kind)
	assert.True(t, p.MinInclusive)
	assert.False(t, p.MaxInclusive)
}

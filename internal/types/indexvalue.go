package types

import "math"

// IndexedValue is the tagged union of column values the index engine can
// store and compare. Total order holds within a variant; comparing across
// variants never matches in a lookup.
type IndexedValue struct {
	Kind    DataType // one of Int64, Float64, Utf8, Boolean, Timestamp, Null
	Int     int64
	Float   float64
	Str     string
	Boolean bool
}

func NewInt64Value(v int64) IndexedValue     { return IndexedValue{Kind: Int64, Int: v} }
func NewFloat64Value(v float64) IndexedValue { return IndexedValue{Kind: Float64, Float: v} }
func NewUtf8Value(v string) IndexedValue     { return IndexedValue{Kind: Utf8, Str: v} }
func NewBooleanValue(v bool) IndexedValue    { return IndexedValue{Kind: Boolean, Boolean: v} }
func NewTimestampValue(v int64) IndexedValue { return IndexedValue{Kind: Timestamp, Int: v} }
func NewNullValue() IndexedValue             { return IndexedValue{Kind: Null} }

// Compare orders two IndexedValues of the same Kind. It returns
// (0, false) when the kinds differ — cross-variant comparisons never
// match a lookup per the data model's tagged-union contract.
func (v IndexedValue) Compare(other IndexedValue) (int, bool) {
	if v.Kind != other.Kind {
		return 0, false
	}
	switch v.Kind {
	case Int64, Timestamp:
		return compareInt64(v.Int, other.Int), true
	case Float64:
		return compareFloat64Total(v.Float, other.Float), true
	case Utf8:
		return compareString(v.Str, other.Str), true
	case Boolean:
		return compareBool(v.Boolean, other.Boolean), true
	case Null:
		return 0, true
	default:
		return 0, false
	}
}

// Equal reports whether two values of the same kind compare equal.
func (v IndexedValue) Equal(other IndexedValue) bool {
	c, ok := v.Compare(other)
	return ok && c == 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

// compareFloat64Total implements a total order over float64: NaN sorts
// last, and -0 compares equal to +0, per the data model's contract.
func compareFloat64Total(a, b float64) int {
	if a == b {
		return 0
	}
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}

// PredicateKind tags the shape of an IndexPredicate.
type PredicateKind int

const (
	PredicateExact PredicateKind = iota + 1
	PredicateIn
	PredicateRange
)

// IndexPredicate is the closed set of predicate shapes the column index
// engine can answer: Exact(v), In(v1..vk), and Range{min?, max?}, each
// naming the column it constrains so a multi-column block's adapter can
// tell which projection the hint applies to.
type IndexPredicate struct {
	Column string
	Kind   PredicateKind
	Exact  IndexedValue
	In     []IndexedValue
	Min    *IndexedValue
	Max    *IndexedValue
	// MinInclusive/MaxInclusive only apply when Min/Max are set.
	MinInclusive bool
	MaxInclusive bool
}

// NewExactPredicate builds an Exact(v) predicate against column.
func NewExactPredicate(column string, v IndexedValue) IndexPredicate {
	return IndexPredicate{Column: column, Kind: PredicateExact, Exact: v}
}

// NewInPredicate builds an In(v1..vk) predicate against column.
func NewInPredicate(column string, values ...IndexedValue) IndexPredicate {
	return IndexPredicate{Column: column, Kind: PredicateIn, In: values}
}

// NewRangePredicate builds a Range{min?, max?} predicate against column.
// Pass nil for an open-ended bound.
func NewRangePredicate(column string, min, max *IndexedValue, minInclusive, maxInclusive bool) IndexPredicate {
	return IndexPredicate{
		Column:       column,
		Kind:         PredicateRange,
		Min:          min,
		Max:          max,
		MinInclusive: minInclusive,
		MaxInclusive: maxInclusive,
	}
}

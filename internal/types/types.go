// Package types holds bundlebase's shared data model: identifiers, schema
// types, row addressing, and the tagged values used by the column index
// engine. These types are passed by value or shared by reference across
// internal/manifest, internal/ops, internal/state, internal/bundle, and
// internal/index — keeping them in one leaf package avoids import cycles.
package types

import (
	"fmt"

	"github.com/google/uuid"
)

// ObjectId is an opaque identifier for blocks, indexes, views, and
// functions: a short lowercase hex token, unique within a bundle.
type ObjectId string

// NewObjectId generates a fresh, randomly unique ObjectId.
func NewObjectId() ObjectId {
	id := uuid.New()
	// first 12 hex chars of a v4 uuid's hyphen-free form give a short,
	// collision-resistant token without carrying the full 36-byte string.
	return ObjectId(id.String()[:8] + id.String()[9:13])
}

// VersionedBlockId pairs a block id with its content/time version token.
// Equal pairs denote identical logical data.
type VersionedBlockId struct {
	BlockID ObjectId `yaml:"block_id"`
	Version string   `yaml:"version"`
}

// DataType is the fixed set of logical column types a Schema entry can hold.
type DataType int

const (
	Int64 DataType = iota + 1
	Float64
	Utf8
	Boolean
	Timestamp
	Null
	ListType
	StructType
)

// MarshalYAML encodes a DataType by its name, keeping manifests readable
// and stable across any future reordering of the iota values.
func (dt DataType) MarshalYAML() (interface{}, error) {
	return dt.String(), nil
}

// UnmarshalYAML decodes a DataType from its name.
func (dt *DataType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	for _, candidate := range []DataType{Int64, Float64, Utf8, Boolean, Timestamp, Null, ListType, StructType} {
		if candidate.String() == name {
			*dt = candidate
			return nil
		}
	}
	return fmt.Errorf("types: unknown data type %q", name)
}

func (dt DataType) String() string {
	switch dt {
	case Int64:
		return "Int64"
	case Float64:
		return "Float64"
	case Utf8:
		return "Utf8"
	case Boolean:
		return "Boolean"
	case Timestamp:
		return "Timestamp"
	case Null:
		return "Null"
	case ListType:
		return "List"
	case StructType:
		return "Struct"
	default:
		return "Unknown"
	}
}

// FieldType describes one column's logical type, including the nested
// element/field types required for List and Struct.
type FieldType struct {
	Kind     DataType             `yaml:"kind"`
	Elem     *FieldType           `yaml:"elem,omitempty"`   // populated when Kind == ListType
	Fields   map[string]FieldType `yaml:"fields,omitempty"` // populated when Kind == StructType
	Nullable bool                 `yaml:"nullable"`
}

// Field is one named, typed column in a Schema.
type Field struct {
	Name string    `yaml:"name"`
	Type FieldType `yaml:"type"`
}

// Schema is an ordered, insertion-preserving mapping from column name to
// logical type. Schemas are shared by reference; every mutation produces
// a new value rather than editing in place.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a Schema from an ordered field list. Duplicate names
// are rejected by keeping only the first occurrence's index, matching the
// "insertion-preserving, unique" contract.
func NewSchema(fields ...Field) Schema {
	s := Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if _, exists := s.index[f.Name]; exists {
			continue
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// Fields returns the schema's fields in declared order. The returned slice
// is a defensive copy; mutating it does not affect the Schema.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Has reports whether name is a column of this schema.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Field looks up a column by name.
func (s Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Names returns the schema's column names in declared order.
func (s Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.fields) }

// WithColumn returns a new Schema with field appended, or replacing the
// existing field of the same name in place (order-preserving).
func (s Schema) WithColumn(f Field) Schema {
	if i, ok := s.index[f.Name]; ok {
		out := s.Fields()
		out[i] = f
		return NewSchema(out...)
	}
	return NewSchema(append(s.Fields(), f)...)
}

// WithoutColumns returns a new Schema with the named columns removed.
func (s Schema) WithoutColumns(names ...string) Schema {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := make([]Field, 0, len(s.fields))
	for _, f := range s.fields {
		if !drop[f.Name] {
			out = append(out, f)
		}
	}
	return NewSchema(out...)
}

// RenameColumn returns a new Schema with column from renamed to to,
// preserving its position.
func (s Schema) RenameColumn(from, to string) Schema {
	out := s.Fields()
	for i, f := range out {
		if f.Name == from {
			out[i] = Field{Name: to, Type: f.Type}
		}
	}
	return NewSchema(out...)
}

// Union merges other into s: shared columns must already be type-compatible
// (checked by the caller — see internal/ops); columns present in only one
// side are added and marked nullable.
func (s Schema) Union(other Schema) Schema {
	out := s.Fields()
	for _, f := range other.fields {
		if _, ok := s.index[f.Name]; ok {
			continue
		}
		f.Type.Nullable = true
		out = append(out, f)
	}
	return NewSchema(out...)
}

// MarshalYAML encodes a Schema as its ordered field list, since the
// internal name index is derivable and not part of the wire format.
func (s Schema) MarshalYAML() (interface{}, error) {
	return s.Fields(), nil
}

// UnmarshalYAML decodes a Schema from an ordered field list.
func (s *Schema) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var fields []Field
	if err := unmarshal(&fields); err != nil {
		return err
	}
	*s = NewSchema(fields...)
	return nil
}

// RowId addresses one logical row within one block version. Sorted row-id
// sequences order lexicographically by (BlockID, Offset).
type RowId struct {
	BlockID ObjectId
	Offset  uint64
}

// Less implements the lexicographic (BlockID, Offset) ordering used
// throughout the index engine's sorted row-id sequences.
func (r RowId) Less(other RowId) bool {
	if r.BlockID != other.BlockID {
		return r.BlockID < other.BlockID
	}
	return r.Offset < other.Offset
}

// IndexDefinition is the logical source of truth for which blocks an
// index covers. The physical on-disk layout (§4.7) lives in internal/index;
// this is the record BundleState and the manifest carry for it.
type IndexDefinition struct {
	ID            ObjectId
	Column        string
	IndexedBlocks []IndexedBlockRef
}

// IndexedBlockRef pairs a VersionedBlockId with the on-disk path of the
// index build that covers it.
type IndexedBlockRef struct {
	Block VersionedBlockId
	Path  string
}

// RowCountEstimate carries a row count with an approximation flag; once
// approximate, an estimate never reverts to exact.
type RowCountEstimate struct {
	Value       uint64
	Approximate bool
}

// Add combines two estimates (UNION ALL semantics): values sum, and the
// result is approximate if either input was.
func (e RowCountEstimate) Add(other RowCountEstimate) RowCountEstimate {
	return RowCountEstimate{
		Value:       e.Value + other.Value,
		Approximate: e.Approximate || other.Approximate,
	}
}

// AsApproximate marks the estimate approximate without changing its value,
// used by Filter (monotonically non-increasing, magnitude unknown) and
// Join (magnitude unknown).
func (e RowCountEstimate) AsApproximate() RowCountEstimate {
	return RowCountEstimate{Value: e.Value, Approximate: true}
}

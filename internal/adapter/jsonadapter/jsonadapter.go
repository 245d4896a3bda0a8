// Package jsonadapter is a reference DataAdapter (C6) over a local JSON
// file containing a top-level array of flat objects, registered for the
// ".json" extension. The schema is the union of keys across all sampled
// objects; a key's type is inferred from its first non-null occurrence.
package jsonadapter

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

// Adapter reads a single local JSON array file into a bundlebase block.
type Adapter struct {
	path string
}

// New opens a jsonadapter.Adapter over the local file at path.
func New(path string) *Adapter {
	return &Adapter{path: strings.TrimPrefix(path, "file://")}
}

func (a *Adapter) readAll() ([]map[string]interface{}, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, bberr.New("jsonadapter.readAll", bberr.DataSource, err).WithContext("path", a.path)
	}

	var docs []map[string]interface{}
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, bberr.New("jsonadapter.readAll", bberr.DataSource, err).WithContext("path", a.path)
	}
	return docs, nil
}

func (a *Adapter) Schema(_ context.Context) (types.Schema, error) {
	docs, err := a.readAll()
	if err != nil {
		return types.Schema{}, err
	}
	return inferSchema(docs), nil
}

func (a *Adapter) ApproxRowCount(_ context.Context) (uint64, error) {
	docs, err := a.readAll()
	if err != nil {
		return 0, err
	}
	return uint64(len(docs)), nil
}

func (a *Adapter) ByteSize(_ context.Context) (uint64, error) {
	info, err := os.Stat(a.path)
	if err != nil {
		return 0, bberr.New("jsonadapter.byteSize", bberr.DataSource, err).WithContext("path", a.path)
	}
	return uint64(info.Size()), nil
}

func (a *Adapter) Scan(_ context.Context, _ []types.IndexPredicate, _ []string) (planexec.TableSource, error) {
	docs, err := a.readAll()
	if err != nil {
		return nil, err
	}
	schema := inferSchema(docs)

	fields := schema.Fields()
	columns := make([]interface{}, len(fields))
	for i, f := range fields {
		values := make([]interface{}, len(docs))
		for r, doc := range docs {
			values[r] = doc[f.Name]
		}
		columns[i] = values
	}
	return adapter.NewColumnarTableSource(schema, columns), nil
}

func inferSchema(docs []map[string]interface{}) types.Schema {
	seen := make(map[string]bool)
	var fields []types.Field
	for _, doc := range docs {
		for key, value := range doc {
			if seen[key] {
				continue
			}
			if value == nil {
				continue
			}
			seen[key] = true
			fields = append(fields, types.Field{Name: key, Type: types.FieldType{Kind: inferType(value)}})
		}
	}
	return types.NewSchema(fields...)
}

func inferType(value interface{}) types.DataType {
	switch value.(type) {
	case float64:
		return types.Float64
	case bool:
		return types.Boolean
	case string:
		return types.Utf8
	default:
		return types.Utf8
	}
}

// Package csvadapter is a reference DataAdapter (C6) over local CSV files,
// registered for the ".csv" extension. Column types are inferred from every
// data row, skipping empty cells: a column is Int64 if every value parses as
// an integer, Float64 if every value parses as a float, else Utf8.
package csvadapter

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

// Adapter reads a single local CSV file into a bundlebase block. It is
// not safe for scanning concurrently with file modification; bundlebase
// does not watch sources for changes after attach.
type Adapter struct {
	path string
}

// New opens a csvadapter.Adapter over the local file at path (after
// trimming a leading "file://" if present).
func New(path string) *Adapter {
	return &Adapter{path: strings.TrimPrefix(path, "file://")}
}

func (a *Adapter) readAll() ([]string, [][]string, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, nil, bberr.New("csvadapter.readAll", bberr.DataSource, err).WithContext("path", a.path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, bberr.New("csvadapter.readAll", bberr.DataSource, err).WithContext("path", a.path)
	}
	if len(records) == 0 {
		return nil, nil, bberr.Newf("csvadapter.readAll", bberr.DataSource, "empty csv file %s", a.path)
	}
	return records[0], records[1:], nil
}

func (a *Adapter) Schema(_ context.Context) (types.Schema, error) {
	header, rows, err := a.readAll()
	if err != nil {
		return types.Schema{}, err
	}
	return inferSchema(header, rows), nil
}

func (a *Adapter) ApproxRowCount(_ context.Context) (uint64, error) {
	_, rows, err := a.readAll()
	if err != nil {
		return 0, err
	}
	return uint64(len(rows)), nil
}

func (a *Adapter) ByteSize(_ context.Context) (uint64, error) {
	info, err := os.Stat(a.path)
	if err != nil {
		return 0, bberr.New("csvadapter.byteSize", bberr.DataSource, err).WithContext("path", a.path)
	}
	return uint64(info.Size()), nil
}

func (a *Adapter) Scan(_ context.Context, _ []types.IndexPredicate, _ []string) (planexec.TableSource, error) {
	header, rows, err := a.readAll()
	if err != nil {
		return nil, err
	}
	schema := inferSchema(header, rows)
	return newCSVTableSource(schema, rows), nil
}

func inferSchema(header []string, rows [][]string) types.Schema {
	fields := make([]types.Field, len(header))
	for i, name := range header {
		fields[i] = types.Field{Name: name, Type: types.FieldType{Kind: inferColumnType(rows, i)}}
	}
	return types.NewSchema(fields...)
}

func inferColumnType(rows [][]string, col int) types.DataType {
	sawFloat := false
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		v := row[col]
		if v == "" {
			continue
		}
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			sawFloat = true
			continue
		}
		return types.Utf8
	}
	if sawFloat {
		return types.Float64
	}
	return types.Int64
}

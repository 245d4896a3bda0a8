package adapter

import (
	"context"
	"io"
	"sort"

	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

// memRows is a fully materialized set of rows held as one slice per
// column, in schema field order. Reference adapters (csvadapter,
// jsonadapter) build one of these per scan rather than streaming off
// disk in fixed-size pages — acceptable for the throwaway reference
// adapters this package hosts, per their role as plug-in examples rather
// than the system's value-add.
type memRows struct {
	schema  types.Schema
	columns []interface{} // one slice per field, len(columns[i]) == rowCount
	offsets []uint64      // logical row offset for each row, for RowId narrowing
}

// memTableSource adapts memRows into a planexec.TableSource, batching
// output in fixed-size chunks and honoring ScanSpec.RowIDs narrowing by
// filtering to the requested offsets.
type memTableSource struct {
	rows      memRows
	batchSize int
}

func newMemTableSource(rows memRows) *memTableSource {
	return &memTableSource{rows: rows, batchSize: 1024}
}

// NewColumnarTableSource builds a planexec.TableSource from schema and one
// []interface{} column per schema field, assigning sequential row offsets
// 0..n-1. Reference adapters (csvadapter, jsonadapter) use this to expose
// their fully materialized scan as a streaming table source.
func NewColumnarTableSource(schema types.Schema, columns []interface{}) planexec.TableSource {
	var n int
	if len(columns) > 0 {
		if col, ok := columns[0].([]interface{}); ok {
			n = len(col)
		}
	}
	offsets := make([]uint64, n)
	for i := range offsets {
		offsets[i] = uint64(i)
	}
	return newMemTableSource(memRows{schema: schema, columns: columns, offsets: offsets})
}

func (m *memTableSource) Schema() types.Schema { return m.rows.schema }

func (m *memTableSource) Scan(_ context.Context, spec planexec.ScanSpec) (planexec.BatchStream, error) {
	rows := m.rows
	if spec.RowIDs != nil {
		rows = filterRows(rows, spec.RowIDs)
	}
	return &memBatchStream{rows: rows, batchSize: m.batchSize}, nil
}

func filterRows(rows memRows, rowIDs []types.RowId) memRows {
	wanted := make(map[uint64]bool, len(rowIDs))
	for _, id := range rowIDs {
		wanted[id.Offset] = true
	}

	keep := make([]int, 0, len(rowIDs))
	for i, offset := range rows.offsets {
		if wanted[offset] {
			keep = append(keep, i)
		}
	}
	sort.Ints(keep)

	out := memRows{schema: rows.schema, offsets: make([]uint64, len(keep))}
	out.columns = make([]interface{}, len(rows.columns))
	for c, col := range rows.columns {
		out.columns[c] = sliceByIndex(col, keep)
	}
	for i, idx := range keep {
		out.offsets[i] = rows.offsets[idx]
	}
	return out
}

func sliceByIndex(col interface{}, idx []int) interface{} {
	switch v := col.(type) {
	case []interface{}:
		out := make([]interface{}, len(idx))
		for i, j := range idx {
			out[i] = v[j]
		}
		return out
	default:
		return col
	}
}

// memBatchStream yields memRows in fixed-size batches.
type memBatchStream struct {
	rows      memRows
	batchSize int
	cursor    int
}

func (s *memBatchStream) Next(ctx context.Context) (planexec.Batch, error) {
	if err := ctx.Err(); err != nil {
		return planexec.Batch{}, err
	}

	total := rowCount(s.rows)
	if s.cursor >= total {
		return planexec.Batch{}, io.EOF
	}

	end := s.cursor + s.batchSize
	if end > total {
		end = total
	}

	columns := make([]interface{}, len(s.rows.columns))
	for i, col := range s.rows.columns {
		columns[i] = sliceByIndex(col, rangeIdx(s.cursor, end))
	}

	batch := planexec.Batch{Schema: s.rows.schema, Rows: end - s.cursor, Columns: columns}
	s.cursor = end
	return batch, nil
}

func (s *memBatchStream) Close() error { return nil }

func rangeIdx(start, end int) []int {
	out := make([]int, end-start)
	for i := range out {
		out[i] = start + i
	}
	return out
}

func rowCount(rows memRows) int {
	if len(rows.columns) == 0 {
		return 0
	}
	if v, ok := rows.columns[0].([]interface{}); ok {
		return len(v)
	}
	return 0
}

var _ planexec.TableSource = (*memTableSource)(nil)

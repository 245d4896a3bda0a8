package index

import (
	"context"
	"errors"
	"io"
	"sort"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

// BuildSource is one block's scan, paired with the logical identity Build
// stamps onto every row-id it produces from that block.
type BuildSource struct {
	Block  types.VersionedBlockId
	Scan   planexec.TableSource
}

// BuildResult is one on-disk index build's summary, returned alongside
// its serialized bytes. `bbctl index build` passes TotalEntries to
// Builder.IndexBlocks as the recorded cardinality and prints TotalRows;
// the row count is not recorded in the manifest.
type BuildResult struct {
	Bytes        []byte
	TotalEntries uint64
	TotalRows    uint64
}

// Build scans every source once, projecting column, and produces one
// serialized §4.7 index file covering all of them. Column must exist in
// each source's schema with a consistent Kind; a mismatch is a Schema
// error, matching AttachBlock's own cross-block type-compatibility rule.
func Build(ctx context.Context, column string, sources []BuildSource) (BuildResult, error) {
	if len(sources) == 0 {
		return BuildResult{}, bberr.Newf("index.Build", bberr.Validation, "no sources to index")
	}

	var dtype types.DataType
	dtypeSet := false
	byValue := map[indexedValueKey][]types.RowId{}
	keyToValue := map[indexedValueKey]types.IndexedValue{}
	covered := make([]coveredBlock, 0, len(sources))
	var totalRows uint64

	for _, src := range sources {
		field, ok := src.Scan.Schema().Field(column)
		if !ok {
			return BuildResult{}, bberr.Newf("index.Build", bberr.Validation, "column %q not in block %s schema", column, src.Block.BlockID)
		}
		if !dtypeSet {
			dtype = field.Type.Kind
			dtypeSet = true
		} else if dtype != field.Type.Kind {
			return BuildResult{}, bberr.Newf("index.Build", bberr.Schema, "column %q: block %s has type %s, expected %s", column, src.Block.BlockID, field.Type.Kind, dtype)
		}

		covered = append(covered, coveredBlock{id: src.Block.BlockID, version: src.Block.Version})

		stream, err := src.Scan.Scan(ctx, planexec.ScanSpec{})
		if err != nil {
			return BuildResult{}, bberr.New("index.Build", bberr.DataSource, err)
		}

		colIdx := fieldIndex(src.Scan.Schema(), column)
		var offset uint64
		for {
			batch, err := stream.Next(ctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				stream.Close()
				return BuildResult{}, bberr.New("index.Build", bberr.DataSource, err)
			}
			values, ok := batch.Columns[colIdx].([]interface{})
			if !ok {
				stream.Close()
				return BuildResult{}, bberr.Newf("index.Build", bberr.DataSource, "unexpected column representation for %q", column)
			}
			for _, raw := range values {
				if raw != nil {
					v := toIndexedValue(dtype, raw)
					k := keyOf(v)
					byValue[k] = append(byValue[k], types.RowId{BlockID: src.Block.BlockID, Offset: offset})
					keyToValue[k] = v
				}
				offset++
			}
			totalRows += uint64(batch.Rows)
		}
		stream.Close()
	}

	keys := make([]indexedValueKey, 0, len(byValue))
	for k := range byValue {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		c, _ := keyToValue[keys[i]].Compare(keyToValue[keys[j]])
		return c < 0
	})

	entries := make([]entryRecord, len(keys))
	for i, k := range keys {
		rowIDs := byValue[k]
		sort.Slice(rowIDs, func(a, b int) bool { return rowIDs[a].Less(rowIDs[b]) })
		entries[i] = entryRecord{value: keyToValue[k], rowIDs: rowIDs}
	}

	raw, err := encodeFile(dtype, totalRows, covered, entries)
	if err != nil {
		return BuildResult{}, err
	}
	return BuildResult{Bytes: raw, TotalEntries: uint64(len(entries)), TotalRows: totalRows}, nil
}

func fieldIndex(schema types.Schema, name string) int {
	for i, f := range schema.Fields() {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// indexedValueKey is a comparable key for grouping IndexedValues in a Go
// map; IndexedValue itself holds every variant's payload so it is already
// comparable, but routing through an explicit key keeps the grouping
// logic readable.
type indexedValueKey = types.IndexedValue

func keyOf(v types.IndexedValue) indexedValueKey { return v }

func toIndexedValue(kind types.DataType, raw interface{}) types.IndexedValue {
	switch kind {
	case types.Int64, types.Timestamp:
		switch v := raw.(type) {
		case int64:
			return types.IndexedValue{Kind: kind, Int: v}
		case int:
			return types.IndexedValue{Kind: kind, Int: int64(v)}
		}
	case types.Float64:
		if v, ok := raw.(float64); ok {
			return types.IndexedValue{Kind: kind, Float: v}
		}
	case types.Boolean:
		if v, ok := raw.(bool); ok {
			return types.IndexedValue{Kind: kind, Boolean: v}
		}
	case types.Utf8:
		if v, ok := raw.(string); ok {
			return types.IndexedValue{Kind: kind, Str: v}
		}
	}
	return types.IndexedValue{Kind: types.Null}
}

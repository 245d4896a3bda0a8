package csvadapter

import (
	"strconv"

	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

func newCSVTableSource(schema types.Schema, rows [][]string) planexec.TableSource {
	fields := schema.Fields()
	columns := make([]interface{}, len(fields))

	for col, field := range fields {
		values := make([]interface{}, len(rows))
		for r, row := range rows {
			if col >= len(row) || row[col] == "" {
				values[r] = nil
				continue
			}
			values[r] = convert(row[col], field.Type.Kind)
		}
		columns[col] = values
	}

	return adapter.NewColumnarTableSource(schema, columns)
}

func convert(raw string, kind types.DataType) interface{} {
	switch kind {
	case types.Int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil
		}
		return v
	case types.Float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		return v
	default:
		return raw
	}
}

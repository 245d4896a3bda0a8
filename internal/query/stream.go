package query

import (
	"context"
	"fmt"
	"io"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
)

// cursorStream pages a compiled query's result set in fixed-size
// LIMIT/OFFSET windows, converting each window of sql.Rows into one
// planexec.Batch. It owns compiled's scratch database and drops it once
// exhausted or explicitly closed.
type cursorStream struct {
	compiled  *compiled
	batchSize int
	offset    int
	closed    bool
}

func newCursorStream(c *compiled, batchSize int) *cursorStream {
	if batchSize <= 0 {
		batchSize = 2048
	}
	return &cursorStream{compiled: c, batchSize: batchSize}
}

func (s *cursorStream) Next(ctx context.Context) (planexec.Batch, error) {
	if s.closed {
		return planexec.Batch{}, io.EOF
	}

	paged := fmt.Sprintf("SELECT * FROM (%s) LIMIT %d OFFSET %d", s.compiled.sql, s.batchSize, s.offset)
	rows, err := s.compiled.db.QueryContext(ctx, paged, s.compiled.args...)
	if err != nil {
		return planexec.Batch{}, bberr.New("query.stream", bberr.Execution, err)
	}
	defer rows.Close()

	fields := s.compiled.schema.Fields()
	columns := make([][]interface{}, len(fields))
	for i := range columns {
		columns[i] = make([]interface{}, 0, s.batchSize)
	}

	raw := make([]interface{}, len(fields))
	scanDest := make([]interface{}, len(fields))
	for i := range scanDest {
		scanDest[i] = &raw[i]
	}

	n := 0
	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			return planexec.Batch{}, bberr.New("query.stream", bberr.Execution, err)
		}
		for i, f := range fields {
			columns[i] = append(columns[i], fromDriverValue(raw[i], f.Type.Kind))
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return planexec.Batch{}, bberr.New("query.stream", bberr.Execution, err)
	}

	s.offset += n
	if n < s.batchSize {
		s.closed = true
		if err := s.compiled.Close(); err != nil {
			return planexec.Batch{}, bberr.New("query.stream", bberr.Execution, err)
		}
	}
	if n == 0 {
		return planexec.Batch{}, io.EOF
	}

	out := make([]interface{}, len(columns))
	for i, c := range columns {
		out[i] = c
	}
	return planexec.Batch{Schema: s.compiled.schema, Rows: n, Columns: out}, nil
}

func (s *cursorStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.compiled.Close()
}

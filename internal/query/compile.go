package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	_ "modernc.org/sqlite"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/config"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

const timeLayout = time.RFC3339Nano

// compileCtx carries the state one compile pass accumulates while
// walking a node tree: the scratch table name assigned to each scan
// leaf and the positional-parameter values bound so far, in the order
// their "$N" tokens appear in the assembled SQL text.
type compileCtx struct {
	tableNames map[*scanNode]string
	args       []interface{}
}

var paramToken = regexp.MustCompile(`\$([0-9]+)`)

// bind rewrites sqlExpr's "$1".."$n" positional parameters into SQLite's
// "?" placeholders, appending each referenced param to ctx.args in the
// order its token appears. Mirrors internal/ops' own positionalParam
// convention (see sqlparams.go) so Filter/Project SQL recorded by the
// core needs no rewriting to reach here.
func (c *compileCtx) bind(sqlExpr string, params []interface{}) (string, error) {
	var convErr error
	out := paramToken.ReplaceAllStringFunc(sqlExpr, func(tok string) string {
		n, err := strconv.Atoi(tok[1:])
		if err != nil || n < 1 || n > len(params) {
			convErr = bberr.Newf("query.compile", bberr.Validation, "parameter %s out of range (have %d)", tok, len(params))
			return tok
		}
		c.args = append(c.args, params[n-1])
		return "?"
	})
	if convErr != nil {
		return "", convErr
	}
	return out, nil
}

// assignTableNames walks root and assigns every distinct scan leaf a
// scratch table name ("t0", "t1", ...) in traversal order. Safe to call
// without ever opening a database, since Explain needs names but no data.
func assignTableNames(root node, ctx *compileCtx) []*scanNode {
	var leaves []*scanNode
	root.collect(&leaves)
	for _, leaf := range leaves {
		if _, ok := ctx.tableNames[leaf]; ok {
			continue
		}
		ctx.tableNames[leaf] = fmt.Sprintf("t%d", len(ctx.tableNames))
	}
	return leaves
}

// compiled is a ready-to-run query: the assembled SQL text, its bound
// positional args, the output schema, and the scratch database backing
// it. Closing it drops the scratch database entirely.
type compiled struct {
	db     *sql.DB
	sql    string
	args   []interface{}
	schema types.Schema
}

func (c *compiled) Close() error { return c.db.Close() }

// compile materializes every scan leaf of root into its own table in a
// fresh in-memory SQLite database, then renders root's SQL against the
// resulting scratch schema. Leaves are populated concurrently, bounded
// by cfg.MaxScanFanIn (or GOMAXPROCS when unset).
func compile(ctx context.Context, cfg config.QueryConfig, root node) (*compiled, error) {
	// A uniquely named in-memory database: "file::memory:?cache=shared" would
	// be one database shared by every compile running in the process.
	db, err := sql.Open("sqlite", "file:"+string(types.NewObjectId())+"?mode=memory&cache=shared")
	if err != nil {
		return nil, bberr.New("query.compile", bberr.Execution, err)
	}
	// A shared-cache :memory: database still only exists for as long as
	// some connection holds it open; pinning the pool to one connection
	// keeps every goroutine's writes visible to every other's reads.
	db.SetMaxOpenConns(1)

	cc := &compileCtx{tableNames: map[*scanNode]string{}}
	leaves := assignTableNames(root, cc)

	if err := populateLeaves(ctx, db, cfg, cc.tableNames, leaves); err != nil {
		db.Close()
		return nil, err
	}

	sqlText, err := root.sql(cc)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &compiled{db: db, sql: sqlText, args: cc.args, schema: root.schema()}, nil
}

func populateLeaves(ctx context.Context, db *sql.DB, cfg config.QueryConfig, tableNames map[*scanNode]string, leaves []*scanNode) error {
	limit := cfg.MaxScanFanIn
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, leaf := range leaves {
		leaf := leaf
		name := tableNames[leaf]
		g.Go(func() error {
			return populateLeaf(gctx, db, name, leaf)
		})
	}
	return g.Wait()
}

func populateLeaf(ctx context.Context, db *sql.DB, table string, leaf *scanNode) error {
	schema := leaf.source.Schema()
	fields := schema.Fields()

	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(f.Name), sqliteType(f.Type.Kind))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(cols, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return bberr.New("query.compile", bberr.Execution, err).WithContext("table", table)
	}
	if len(fields) == 0 {
		return nil
	}

	placeholders := make([]string, len(fields))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.Join(placeholders, ","))

	stream, err := leaf.source.Scan(ctx, planexec.ScanSpec{})
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		batch, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return bberr.New("query.compile", bberr.Execution, err).WithContext("table", table)
		}
		if err := insertBatch(ctx, db, insertSQL, table, fields, batch); err != nil {
			return err
		}
	}
}

func insertBatch(ctx context.Context, db *sql.DB, insertSQL, table string, fields []types.Field, batch planexec.Batch) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return bberr.New("query.compile", bberr.Execution, err).WithContext("table", table)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		tx.Rollback()
		return bberr.New("query.compile", bberr.Execution, err).WithContext("table", table)
	}
	defer stmt.Close()

	args := make([]interface{}, len(fields))
	for r := 0; r < batch.Rows; r++ {
		for c, f := range fields {
			var raw interface{}
			if values, ok := batch.Columns[c].([]interface{}); ok && r < len(values) {
				raw = values[r]
			}
			args[c] = toDriverValue(raw, f.Type.Kind)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return bberr.New("query.compile", bberr.Execution, err).WithContext("table", table)
		}
	}
	if err := tx.Commit(); err != nil {
		return bberr.New("query.compile", bberr.Execution, err).WithContext("table", table)
	}
	return nil
}

func sqliteType(dt types.DataType) string {
	switch dt {
	case types.Int64, types.Boolean:
		return "INTEGER"
	case types.Float64:
		return "REAL"
	default:
		// Utf8, Timestamp (stored as RFC3339 text), Null, List, Struct.
		return "TEXT"
	}
}

// toDriverValue converts one adapter-produced Go value into the shape
// modernc.org/sqlite's driver accepts for dt, falling back to fmt.Sprint
// for the composite types (List, Struct) no adapter in this codebase
// currently emits.
func toDriverValue(v interface{}, dt types.DataType) interface{} {
	if v == nil {
		return nil
	}
	switch dt {
	case types.Boolean:
		if b, ok := v.(bool); ok {
			if b {
				return int64(1)
			}
			return int64(0)
		}
	case types.Int64:
		switch n := v.(type) {
		case int64:
			return n
		case int:
			return int64(n)
		case float64:
			return int64(n)
		}
	case types.Float64:
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
	case types.Timestamp:
		if t, ok := v.(time.Time); ok {
			return t.Format(timeLayout)
		}
	case types.Utf8:
		if s, ok := v.(string); ok {
			return s
		}
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// fromDriverValue converts one value read back from the scratch
// database into the Go representation callers expect for dt.
func fromDriverValue(raw interface{}, dt types.DataType) interface{} {
	switch dt {
	case types.Boolean:
		if n, ok := raw.(int64); ok {
			return n != 0
		}
	case types.Utf8, types.Timestamp:
		if b, ok := raw.([]byte); ok {
			return string(b)
		}
	}
	return raw
}

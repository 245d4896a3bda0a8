package query

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/config"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

var simpleColumnRef = regexp.MustCompile(`(?i)^([A-Za-z_][A-Za-z0-9_]*)(\s+AS\s+([A-Za-z_][A-Za-z0-9_]*))?$`)

// node is one step of a logical plan. schema reports the node's output
// schema without compiling anything; sql renders the node's SQL text
// against ctx, recursing into its children first so bound parameters
// accumulate in left-to-right textual order.
type node interface {
	schema() types.Schema
	sql(ctx *compileCtx) (string, error)
	collect(acc *[]*scanNode)
}

// scanNode is a plan leaf: one TableSource, materialized into its own
// scratch table ("t0", "t1", ...) before the assembled SQL runs.
type scanNode struct {
	source planexec.TableSource
}

func (n *scanNode) schema() types.Schema { return n.source.Schema() }

func (n *scanNode) sql(ctx *compileCtx) (string, error) {
	name, ok := ctx.tableNames[n]
	if !ok {
		return "", bberr.Newf("query.compile", bberr.Execution, "scan leaf was not registered before compile")
	}
	return "SELECT * FROM " + name, nil
}

func (n *scanNode) collect(acc *[]*scanNode) { *acc = append(*acc, n) }

type filterNode struct {
	input   node
	sqlExpr string
	params  []interface{}
}

func (n *filterNode) schema() types.Schema { return n.input.schema() }

func (n *filterNode) sql(ctx *compileCtx) (string, error) {
	inner, err := n.input.sql(ctx)
	if err != nil {
		return "", err
	}
	clause, err := ctx.bind(n.sqlExpr, n.params)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT * FROM (%s) WHERE %s", inner, clause), nil
}

func (n *filterNode) collect(acc *[]*scanNode) { n.input.collect(acc) }

type projectNode struct {
	input        node
	sqlOrColumns string
	params       []interface{}
}

func (n *projectNode) schema() types.Schema {
	if cols, ok := parseSimpleColumnList(n.sqlOrColumns); ok {
		input := n.input.schema()
		fields := make([]types.Field, 0, len(cols))
		for _, c := range cols {
			f, ok := input.Field(c.name)
			if !ok {
				continue
			}
			if c.alias != "" {
				f.Name = c.alias
			}
			fields = append(fields, f)
		}
		return types.NewSchema(fields...)
	}
	// An arbitrary computed expression's output type isn't known without
	// running it, same limitation ops.Select documents.
	return n.input.schema()
}

func (n *projectNode) sql(ctx *compileCtx) (string, error) {
	inner, err := n.input.sql(ctx)
	if err != nil {
		return "", err
	}

	if cols, ok := parseSimpleColumnList(n.sqlOrColumns); ok {
		parts := make([]string, len(cols))
		for i, c := range cols {
			if c.alias != "" {
				parts[i] = fmt.Sprintf("%s AS %s", quoteIdent(c.name), quoteIdent(c.alias))
			} else {
				parts[i] = quoteIdent(c.name)
			}
		}
		return fmt.Sprintf("SELECT %s FROM (%s)", strings.Join(parts, ", "), inner), nil
	}

	bound, err := ctx.bind(n.sqlOrColumns, n.params)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s FROM (%s)", bound, inner), nil
}

func (n *projectNode) collect(acc *[]*scanNode) { n.input.collect(acc) }

type removeColumnsNode struct {
	input node
	names []string
}

func (n *removeColumnsNode) schema() types.Schema { return n.input.schema().WithoutColumns(n.names...) }

func (n *removeColumnsNode) sql(ctx *compileCtx) (string, error) {
	inner, err := n.input.sql(ctx)
	if err != nil {
		return "", err
	}
	fields := n.schema().Fields()
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = quoteIdent(f.Name)
	}
	return fmt.Sprintf("SELECT %s FROM (%s)", strings.Join(parts, ", "), inner), nil
}

func (n *removeColumnsNode) collect(acc *[]*scanNode) { n.input.collect(acc) }

type renameColumnNode struct {
	input    node
	from, to string
}

func (n *renameColumnNode) schema() types.Schema { return n.input.schema().RenameColumn(n.from, n.to) }

func (n *renameColumnNode) sql(ctx *compileCtx) (string, error) {
	inner, err := n.input.sql(ctx)
	if err != nil {
		return "", err
	}
	fields := n.input.schema().Fields()
	parts := make([]string, len(fields))
	for i, f := range fields {
		if f.Name == n.from {
			parts[i] = fmt.Sprintf("%s AS %s", quoteIdent(f.Name), quoteIdent(n.to))
		} else {
			parts[i] = quoteIdent(f.Name)
		}
	}
	return fmt.Sprintf("SELECT %s FROM (%s)", strings.Join(parts, ", "), inner), nil
}

func (n *renameColumnNode) collect(acc *[]*scanNode) { n.input.collect(acc) }

type unionAllNode struct {
	left, right node
}

func (n *unionAllNode) schema() types.Schema { return n.left.schema().Union(n.right.schema()) }

func (n *unionAllNode) sql(ctx *compileCtx) (string, error) {
	leftSQL, err := n.left.sql(ctx)
	if err != nil {
		return "", err
	}
	rightSQL, err := n.right.sql(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s) UNION ALL (%s)", leftSQL, rightSQL), nil
}

func (n *unionAllNode) collect(acc *[]*scanNode) {
	n.left.collect(acc)
	n.right.collect(acc)
}

// joinNode assembles its two sides as subqueries aliased "l" and "r" in
// the compiled SQL; predicate is spliced verbatim into the ON clause, so
// a predicate touching a column name present on both sides must qualify
// it "l.col"/"r.col" to avoid SQLite reporting an ambiguous column.
type joinNode struct {
	left, right node
	predicate   string
	how         planexec.JoinKind
	qualifier   string
}

func (n *joinNode) schema() types.Schema {
	fields := n.left.schema().Fields()
	for _, f := range n.right.schema().Fields() {
		f.Name = n.qualifier + "." + f.Name
		fields = append(fields, f)
	}
	return types.NewSchema(fields...)
}

func (n *joinNode) sql(ctx *compileCtx) (string, error) {
	leftSQL, err := n.left.sql(ctx)
	if err != nil {
		return "", err
	}
	rightSQL, err := n.right.sql(ctx)
	if err != nil {
		return "", err
	}

	var cols []string
	for _, f := range n.left.schema().Fields() {
		cols = append(cols, fmt.Sprintf("l.%s AS %s", quoteIdent(f.Name), quoteIdent(f.Name)))
	}
	for _, f := range n.right.schema().Fields() {
		cols = append(cols, fmt.Sprintf("r.%s AS %s", quoteIdent(f.Name), quoteIdent(n.qualifier+"."+f.Name)))
	}

	return fmt.Sprintf("SELECT %s FROM (%s) AS l %s (%s) AS r ON %s",
		strings.Join(cols, ", "), leftSQL, joinKeyword(n.how), rightSQL, n.predicate), nil
}

func (n *joinNode) collect(acc *[]*scanNode) {
	n.left.collect(acc)
	n.right.collect(acc)
}

func joinKeyword(how planexec.JoinKind) string {
	switch how {
	case planexec.JoinLeft:
		return "LEFT JOIN"
	case planexec.JoinRight:
		return "RIGHT JOIN"
	case planexec.JoinFull:
		return "FULL JOIN"
	default:
		return "JOIN"
	}
}

// Plan is the planexec.LogicalPlan implementation: an immutable node
// tree, widened by one node per composing call. Every method returns a
// new Plan; none mutate the receiver.
type Plan struct {
	root node
	cfg  config.QueryConfig
}

func (p *Plan) Schema() types.Schema { return p.root.schema() }

func (p *Plan) Filter(sqlExpr string, params []interface{}) (planexec.LogicalPlan, error) {
	return &Plan{root: &filterNode{input: p.root, sqlExpr: sqlExpr, params: params}, cfg: p.cfg}, nil
}

func (p *Plan) Project(sqlOrColumns string, params []interface{}) (planexec.LogicalPlan, error) {
	return &Plan{root: &projectNode{input: p.root, sqlOrColumns: sqlOrColumns, params: params}, cfg: p.cfg}, nil
}

func (p *Plan) RemoveColumns(names []string) (planexec.LogicalPlan, error) {
	return &Plan{root: &removeColumnsNode{input: p.root, names: names}, cfg: p.cfg}, nil
}

func (p *Plan) RenameColumn(from, to string) (planexec.LogicalPlan, error) {
	return &Plan{root: &renameColumnNode{input: p.root, from: from, to: to}, cfg: p.cfg}, nil
}

func (p *Plan) UnionAll(other planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	o, ok := other.(*Plan)
	if !ok {
		return nil, bberr.Newf("Plan.UnionAll", bberr.Execution, "cannot union a plan from a different engine")
	}
	return &Plan{root: &unionAllNode{left: p.root, right: o.root}, cfg: p.cfg}, nil
}

func (p *Plan) Join(other planexec.LogicalPlan, predicate string, how planexec.JoinKind, qualifier string) (planexec.LogicalPlan, error) {
	o, ok := other.(*Plan)
	if !ok {
		return nil, bberr.Newf("Plan.Join", bberr.Execution, "cannot join a plan from a different engine")
	}
	return &Plan{root: &joinNode{left: p.root, right: o.root, predicate: predicate, how: how, qualifier: qualifier}, cfg: p.cfg}, nil
}

// Explain renders the assembled SQL text without opening a scratch
// database: table names are assigned but never populated, so Explain
// costs nothing beyond walking the node tree.
func (p *Plan) Explain() (string, error) {
	ctx := &compileCtx{tableNames: map[*scanNode]string{}}
	assignTableNames(p.root, ctx)
	return p.root.sql(ctx)
}

func (p *Plan) ExecuteStream(ctx context.Context) (planexec.BatchStream, error) {
	compiled, err := compile(ctx, p.cfg, p.root)
	if err != nil {
		return nil, err
	}
	return newCursorStream(compiled, p.cfg.BatchSize), nil
}

type columnRef struct {
	name  string
	alias string
}

// parseSimpleColumnList recognizes a plain comma-separated column list,
// optionally with "AS alias", mirroring ops.Select's own parser; returns
// ok=false for anything else (arbitrary SQL expressions).
func parseSimpleColumnList(sqlOrColumns string) ([]columnRef, bool) {
	parts := strings.Split(sqlOrColumns, ",")
	refs := make([]columnRef, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		match := simpleColumnRef.FindStringSubmatch(trimmed)
		if match == nil {
			return nil, false
		}
		refs = append(refs, columnRef{name: match[1], alias: match[3]})
	}
	return refs, true
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

package ops

import (
	"regexp"
	"strings"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

var simpleColumnRef = regexp.MustCompile(`(?i)^([A-Za-z_][A-Za-z0-9_]*)(\s+AS\s+([A-Za-z_][A-Za-z0-9_]*))?$`)

// Select projects columns via a plain column list or an arbitrary SQL
// projection expression. The row-count estimate is preserved. Schema
// reconfiguration only resolves the simple "col[, col AS alias]*" form;
// an arbitrary computed expression's output type cannot be known without
// the query engine, so the schema is left unchanged in that case and the
// engine's own schema (available after execute_stream) is authoritative.
type Select struct {
	SQLOrColumns string        `yaml:"sql_or_columns"`
	Params       []interface{} `yaml:"params,omitempty"`
}

func (o *Select) Type() string { return TypeSelect }

func (o *Select) Check(s *state.BundleState) error {
	if err := checkParamArity("Select.Check", o.SQLOrColumns, o.Params); err != nil {
		return err
	}
	if cols, ok := parseSimpleColumnList(o.SQLOrColumns); ok {
		schema := s.Schema()
		for _, c := range cols {
			if !schema.Has(c.name) {
				return bberr.Newf("Select.Check", bberr.Validation, "unknown column %q", c.name).
					WithContext("available", schema.Names())
			}
		}
	}
	return nil
}

func (o *Select) Reconfigure(s *state.BundleState) error {
	cols, ok := parseSimpleColumnList(o.SQLOrColumns)
	if !ok {
		return nil
	}
	schema := s.Schema()
	fields := make([]types.Field, 0, len(cols))
	for _, c := range cols {
		f, _ := schema.Field(c.name)
		if c.alias != "" {
			f.Name = c.alias
		}
		fields = append(fields, f)
	}
	s.SetSchema(types.NewSchema(fields...))
	return nil
}

func (o *Select) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan.Project(o.SQLOrColumns, o.Params)
}

type columnRef struct {
	name  string
	alias string
}

// parseSimpleColumnList recognizes a plain comma-separated column list,
// optionally with "AS alias"; returns ok=false for anything else
// (arbitrary SQL expressions).
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

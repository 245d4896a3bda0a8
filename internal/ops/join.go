package ops

import (
	"strings"

	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

// Join attaches a second source and joins it against the current schema.
// The right-hand schema and live adapter are resolved out-of-band (by the
// Builder or manifest loader, same pattern as AttachBlock) and bound via
// BindRightSchema/BindAdapter before Check/Reconfigure run.
type Join struct {
	Name      string `yaml:"name"`
	SourceURL string `yaml:"source_url"`
	Predicate string `yaml:"predicate"`
	How       planexec.JoinKind `yaml:"how"`

	rightSchema     types.Schema
	resolvedAdapter adapter.DataAdapter
}

// BindRightSchema attaches the resolved schema of source_url.
func (o *Join) BindRightSchema(schema types.Schema) {
	o.rightSchema = schema
}

// BindAdapter attaches the live DataAdapter source_url resolves to, the
// handle internal/bundle scans to build this join's right-hand side.
func (o *Join) BindAdapter(a adapter.DataAdapter) {
	o.resolvedAdapter = a
}

// Adapter returns the live DataAdapter bound by BindAdapter, used by plan
// assembly (internal/bundle's collectJoinSides) to scan this join's
// right-hand source. Never nil once Check has passed.
func (o *Join) Adapter() adapter.DataAdapter {
	return o.resolvedAdapter
}

func (o *Join) Type() string { return TypeJoin }

func (o *Join) Check(s *state.BundleState) error {
	if o.Name == "" {
		return bberr.Newf("Join.Check", bberr.Validation, "name must not be empty")
	}
	if o.SourceURL == "" {
		return bberr.Newf("Join.Check", bberr.Validation, "source_url must not be empty")
	}
	if o.Predicate == "" {
		return bberr.Newf("Join.Check", bberr.Validation, "predicate must not be empty")
	}
	if o.rightSchema.Len() == 0 {
		return bberr.Newf("Join.Check", bberr.DataSource, "no schema resolved for %q", o.SourceURL)
	}
	if o.resolvedAdapter == nil {
		return bberr.Newf("Join.Check", bberr.DataSource, "no adapter resolved for %q", o.SourceURL)
	}

	left := s.Schema()
	if !referencesAnyColumn(o.Predicate, left.Names()) {
		return bberr.Newf("Join.Check", bberr.Validation, "predicate %q references no left-side column", o.Predicate)
	}
	if !referencesAnyColumn(o.Predicate, o.rightSchema.Names()) {
		return bberr.Newf("Join.Check", bberr.Validation, "predicate %q references no right-side column", o.Predicate)
	}
	return nil
}

func referencesAnyColumn(predicate string, names []string) bool {
	for _, name := range names {
		if strings.Contains(predicate, name) {
			return true
		}
	}
	return false
}

// Reconfigure widens the schema with the right side's columns qualified
// by name (e.g. "orders.id") and sets the row-count estimate to
// approximate with unknown magnitude.
func (o *Join) Reconfigure(s *state.BundleState) error {
	left := s.Schema()
	fields := left.Fields()
	for _, f := range o.rightSchema.Fields() {
		fields = append(fields, types.Field{Name: o.Name + "." + f.Name, Type: f.Type})
	}
	s.SetSchema(types.NewSchema(fields...))
	s.SetRowCount(types.RowCountEstimate{Approximate: true})
	return nil
}

// Apply is a no-op: the join's right-side scan and union are assembled
// by internal/bundle directly from this operation's recorded fields,
// the same deferred-assembly treatment AttachBlock gets.
func (o *Join) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan, nil
}

package ops

import (
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
)

// RenameColumn renames one column, preserving its position and the
// row-count estimate.
type RenameColumn struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

func (o *RenameColumn) Type() string { return TypeRenameColumn }

func (o *RenameColumn) Check(s *state.BundleState) error {
	schema := s.Schema()
	if !schema.Has(o.From) {
		return bberr.Newf("RenameColumn.Check", bberr.Validation, "unknown column %q", o.From).
			WithContext("available", schema.Names())
	}
	if o.From != o.To && schema.Has(o.To) {
		return bberr.Newf("RenameColumn.Check", bberr.Validation, "column %q already exists", o.To)
	}
	return nil
}

func (o *RenameColumn) Reconfigure(s *state.BundleState) error {
	s.SetSchema(s.Schema().RenameColumn(o.From, o.To))
	return nil
}

func (o *RenameColumn) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan.RenameColumn(o.From, o.To)
}

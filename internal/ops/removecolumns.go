package ops

import (
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
)

// RemoveColumns drops named columns from the schema. The row-count
// estimate is preserved unchanged.
type RemoveColumns struct {
	Names []string `yaml:"names"`
}

func (o *RemoveColumns) Type() string { return TypeRemoveColumns }

func (o *RemoveColumns) Check(s *state.BundleState) error {
	if len(o.Names) == 0 {
		return bberr.Newf("RemoveColumns.Check", bberr.Validation, "names must not be empty")
	}
	schema := s.Schema()
	for _, name := range o.Names {
		if !schema.Has(name) {
			return bberr.Newf("RemoveColumns.Check", bberr.Validation, "unknown column %q", name).
				WithContext("available", schema.Names())
		}
	}
	return nil
}

func (o *RemoveColumns) Reconfigure(s *state.BundleState) error {
	s.SetSchema(s.Schema().WithoutColumns(o.Names...))
	return nil
}

func (o *RemoveColumns) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan.RemoveColumns(o.Names)
}

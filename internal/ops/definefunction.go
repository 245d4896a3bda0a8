package ops

import (
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

// DefineFunction records a function's name and output schema. This is
// the declaration half of C11: it travels with the manifest, but
// registering the actual paginated implementation is a separate, local,
// unserialized side effect (function.Registry.SetImpl).
type DefineFunction struct {
	Name         string       `yaml:"name"`
	OutputSchema types.Schema `yaml:"output_schema"`
}

func (o *DefineFunction) Type() string { return TypeDefineFunction }

func (o *DefineFunction) Check(_ *state.BundleState) error {
	if o.Name == "" {
		return bberr.Newf("DefineFunction.Check", bberr.Validation, "name must not be empty")
	}
	if o.OutputSchema.Len() == 0 {
		return bberr.Newf("DefineFunction.Check", bberr.Validation, "output_schema must have at least one column")
	}
	return nil
}

func (o *DefineFunction) Reconfigure(s *state.BundleState) error {
	s.Functions().Declare(o.Name, o.OutputSchema)
	return nil
}

func (o *DefineFunction) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan, nil
}

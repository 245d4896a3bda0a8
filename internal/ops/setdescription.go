package ops

import (
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
)

// SetDescription sets the bundle's free-text description.
type SetDescription struct {
	S string `yaml:"s"`
}

func (o *SetDescription) Type() string { return TypeSetDescription }

func (o *SetDescription) Check(_ *state.BundleState) error { return nil }

func (o *SetDescription) Reconfigure(s *state.BundleState) error {
	s.SetDescription(o.S)
	return nil
}

func (o *SetDescription) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan, nil
}

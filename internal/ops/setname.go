package ops

import (
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
)

// SetName sets the bundle's display name.
type SetName struct {
	S string `yaml:"s"`
}

func (o *SetName) Type() string { return TypeSetName }

func (o *SetName) Check(_ *state.BundleState) error { return nil }

func (o *SetName) Reconfigure(s *state.BundleState) error {
	s.SetName(o.S)
	return nil
}

func (o *SetName) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan, nil
}

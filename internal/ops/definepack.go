package ops

import (
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
)

// DefinePack is a field-less operation that changes neither state nor
// plan. The Builder never records it, and a manifest that contains it
// replays it as a no-op; an origin commit is identified by a null from.
type DefinePack struct{}

func (o *DefinePack) Type() string { return TypeDefinePack }

func (o *DefinePack) Check(_ *state.BundleState) error { return nil }

func (o *DefinePack) Reconfigure(_ *state.BundleState) error { return nil }

func (o *DefinePack) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan, nil
}

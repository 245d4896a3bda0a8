package ops

import (
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

// DropIndex removes an index definition from the bundle.
type DropIndex struct {
	ID types.ObjectId `yaml:"id"`
}

func (o *DropIndex) Type() string { return TypeDropIndex }

func (o *DropIndex) Check(s *state.BundleState) error {
	if _, exists := s.IndexDefinition(o.ID); !exists {
		return bberr.Newf("DropIndex.Check", bberr.Validation, "unknown index %q", o.ID)
	}
	return nil
}

func (o *DropIndex) Reconfigure(s *state.BundleState) error {
	s.DropIndexDefinition(o.ID)
	return nil
}

func (o *DropIndex) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan, nil
}

package ops

import (
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

// CreateIndex declares a new, as-yet-unbuilt column index. The Builder
// assigns ID a fresh types.NewObjectId() value when recording.
type CreateIndex struct {
	Column string         `yaml:"column"`
	ID     types.ObjectId `yaml:"id"`
}

func (o *CreateIndex) Type() string { return TypeCreateIndex }

func (o *CreateIndex) Check(s *state.BundleState) error {
	if o.ID == "" {
		return bberr.Newf("CreateIndex.Check", bberr.Validation, "id must not be empty")
	}
	if !s.Schema().Has(o.Column) {
		return bberr.Newf("CreateIndex.Check", bberr.Validation, "unknown column %q", o.Column).
			WithContext("available", s.Schema().Names())
	}
	if _, exists := s.IndexDefinition(o.ID); exists {
		return bberr.Newf("CreateIndex.Check", bberr.Validation, "index %q already exists", o.ID)
	}
	return nil
}

func (o *CreateIndex) Reconfigure(s *state.BundleState) error {
	s.SetIndexDefinition(types.IndexDefinition{ID: o.ID, Column: o.Column})
	return nil
}

func (o *CreateIndex) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan, nil
}

package ops

import (
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

// AttachView registers a named derived view, pointing at the view's own
// bundle subtree rooted under {parent}/_manifest/view_{view_id}/.
type AttachView struct {
	Name   string         `yaml:"name"`
	ViewID types.ObjectId `yaml:"view_id"`
}

func (o *AttachView) Type() string { return TypeAttachView }

func (o *AttachView) Check(s *state.BundleState) error {
	if o.Name == "" {
		return bberr.Newf("AttachView.Check", bberr.Validation, "name must not be empty")
	}
	if o.ViewID == "" {
		return bberr.Newf("AttachView.Check", bberr.Validation, "view_id must not be empty")
	}
	if _, exists := s.View(o.Name); exists {
		return bberr.Newf("AttachView.Check", bberr.Validation, "view %q already attached", o.Name)
	}
	return nil
}

func (o *AttachView) Reconfigure(s *state.BundleState) error {
	s.AttachView(o.Name, o.ViewID)
	return nil
}

func (o *AttachView) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan, nil
}

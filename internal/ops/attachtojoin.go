package ops

import (
	"strings"

	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
)

// AttachToJoin attaches another source into an already-joined side,
// unioned with whatever source(s) that named side already carries. The
// live adapter is resolved out-of-band and bound via BindAdapter.
type AttachToJoin struct {
	Name      string `yaml:"name"`
	SourceURL string `yaml:"source_url"`

	resolvedAdapter adapter.DataAdapter
}

func (o *AttachToJoin) BindAdapter(a adapter.DataAdapter) {
	o.resolvedAdapter = a
}

// Adapter returns the live DataAdapter bound by BindAdapter, used by plan
// assembly (internal/bundle's collectJoinSides) to scan this source and
// union it into the named join side it attaches to.
func (o *AttachToJoin) Adapter() adapter.DataAdapter {
	return o.resolvedAdapter
}

func (o *AttachToJoin) Type() string { return TypeAttachToJoin }

func (o *AttachToJoin) Check(s *state.BundleState) error {
	if o.Name == "" {
		return bberr.Newf("AttachToJoin.Check", bberr.Validation, "name must not be empty")
	}
	if o.SourceURL == "" {
		return bberr.Newf("AttachToJoin.Check", bberr.Validation, "source_url must not be empty")
	}
	if o.resolvedAdapter == nil {
		return bberr.Newf("AttachToJoin.Check", bberr.DataSource, "no adapter resolved for %q", o.SourceURL)
	}

	prefix := o.Name + "."
	for _, name := range s.Schema().Names() {
		if strings.HasPrefix(name, prefix) {
			return nil
		}
	}
	return bberr.Newf("AttachToJoin.Check", bberr.Validation, "no existing join named %q", o.Name)
}

// Reconfigure performs no schema change: the attached source shares the
// logical columns the named join side already contributed.
func (o *AttachToJoin) Reconfigure(s *state.BundleState) error {
	s.SetRowCount(s.RowCount().AsApproximate())
	return nil
}

// Apply is a no-op for the same reason as Join and AttachBlock: the
// union happens at initial plan assembly in internal/bundle.
func (o *AttachToJoin) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan, nil
}

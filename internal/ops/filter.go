package ops

import (
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
)

// Filter applies a residual SQL boolean expression, using positional
// $1..$n parameters. It marks the row-count estimate approximate
// (monotonically non-increasing: filtering never adds rows).
type Filter struct {
	SQLExpr string        `yaml:"sql_expr"`
	Params  []interface{} `yaml:"params,omitempty"`
}

func (o *Filter) Type() string { return TypeFilter }

func (o *Filter) Check(_ *state.BundleState) error {
	return checkParamArity("Filter.Check", o.SQLExpr, o.Params)
}

func (o *Filter) Reconfigure(s *state.BundleState) error {
	s.SetRowCount(s.RowCount().AsApproximate())
	return nil
}

func (o *Filter) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan.Filter(o.SQLExpr, o.Params)
}

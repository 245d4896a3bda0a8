// Package query is bundlebase's concrete planexec.Engine (C10): a
// streaming query façade backed by modernc.org/sqlite. It composes
// Operation.Apply calls into a node tree, defers any real work until
// Explain or ExecuteStream, and then materializes each scan leaf into a
// scratch in-memory SQLite database before running the assembled SQL
// against it. The core (internal/ops, internal/bundle) never imports
// this package directly; it only ever sees planexec's interfaces.
package query

import (
	"bundlebase.dev/bundlebase/internal/config"
	"bundlebase.dev/bundlebase/internal/planexec"
)

// Engine is the planexec.Engine implementation wired into
// bundle.Dependencies for any process that needs to actually execute
// plans rather than just assemble them (cmd/bbctl, tests that exercise
// execute_stream end to end).
type Engine struct {
	cfg config.QueryConfig
}

// NewEngine builds an Engine using cfg's batch size and scan fan-in
// limit. A zero cfg is valid: BatchSize falls back to 2048 and
// MaxScanFanIn to runtime.GOMAXPROCS(0) at compile time.
func NewEngine(cfg config.QueryConfig) *Engine {
	return &Engine{cfg: cfg}
}

// NewTableScan wraps source as the leaf of a fresh Plan.
func (e *Engine) NewTableScan(source planexec.TableSource) (planexec.LogicalPlan, error) {
	return &Plan{root: &scanNode{source: source}, cfg: e.cfg}, nil
}

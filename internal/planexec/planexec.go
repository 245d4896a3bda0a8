// Package planexec defines the contract bundlebase's core uses to talk to
// the external, opaque SQL query engine (spec §1: "the core treats it as
// an opaque query planner that accepts logical plans and yields a batch
// stream"). internal/ops composes plans through this interface only;
// internal/query supplies the concrete implementation backed by
// modernc.org/sqlite. Keeping the contract in its own leaf package lets
// internal/ops depend on it without depending on internal/query, and lets
// the query package be swapped without touching operation code.
package planexec

import (
	"context"

	"bundlebase.dev/bundlebase/internal/types"
)

// Batch is one unit of streamed query output: a set of columns (each a
// Go slice of a concrete type matching its Schema field) sharing a row
// count. The query engine owns the concrete batch representation; the
// core only ever passes batches through, except where it narrows a scan
// by row-id (see ScanSpec).
type Batch struct {
	Schema types.Schema
	Rows   int
	// Columns holds one slice per schema field. Callers index Columns by
	// the same position as Schema.Fields().
	Columns []interface{}
}

// BatchStream yields one Batch at a time and is pull-based: Next is only
// called again after the previous Batch has been consumed. Dropping a
// stream without draining it (discarding its reference) must free
// whatever the engine allocated for it; Close makes that explicit for
// consumers that need deterministic cleanup for example after an error.
type BatchStream interface {
	// Next returns the next batch, or io.EOF (wrapped or bare) when the
	// stream is exhausted. ctx cancellation aborts in-flight production.
	Next(ctx context.Context) (Batch, error)
	Close() error
}

// ScanSpec narrows a base table scan to a specific row-id set (used by
// C8 when an index lookup produces a targeted row-id list) and/or a
// residual SQL predicate the engine must still apply.
type ScanSpec struct {
	RowIDs         []types.RowId // nil means "no row-id narrowing"
	ResidualSQL    string
	ResidualParams []interface{}
}

// TableSource is one leaf of a LogicalPlan: a named, schema'd scan over a
// single attached block, narrowed by an optional ScanSpec.
type TableSource interface {
	Schema() types.Schema
	Scan(ctx context.Context, spec ScanSpec) (BatchStream, error)
}

// LogicalPlan is the composable, unexecuted query plan threaded through
// each recorded Operation's Apply phase. Implementations of the query
// engine compose plan nodes only; operations never execute anything
// themselves — the sole lazy phase is Apply.
type LogicalPlan interface {
	Schema() types.Schema

	// Filter returns a new plan with sql (positional $1.. params) applied
	// as a predicate.
	Filter(sql string, params []interface{}) (LogicalPlan, error)

	// Project returns a new plan selecting/reordering columns, or
	// evaluating sqlOrColumns as a SQL select-list when it is not a bare
	// column list.
	Project(sqlOrColumns string, params []interface{}) (LogicalPlan, error)

	// RemoveColumns returns a new plan with the named columns dropped.
	RemoveColumns(names []string) (LogicalPlan, error)

	// RenameColumn returns a new plan with column from renamed to to.
	RenameColumn(from, to string) (LogicalPlan, error)

	// UnionAll returns a new plan that is the row-wise concatenation of
	// this plan and other, used to assemble AttachBlock's contribution.
	UnionAll(other LogicalPlan) (LogicalPlan, error)

	// Join returns a new plan joining this plan against other on
	// predicate (SQL boolean expression), qualifying other's columns by
	// qualifier, using join kind how.
	Join(other LogicalPlan, predicate string, how JoinKind, qualifier string) (LogicalPlan, error)

	// Explain renders a human-readable description of the plan without
	// executing it.
	Explain() (string, error)

	// ExecuteStream hands the plan to the engine's streaming execute
	// path. The façade never collects; this call must return promptly
	// and defer work to the returned stream's Next calls.
	ExecuteStream(ctx context.Context) (BatchStream, error)
}

// JoinKind is the closed set of supported join types.
type JoinKind string

const (
	JoinInner JoinKind = "inner"
	JoinLeft  JoinKind = "left"
	JoinRight JoinKind = "right"
	JoinFull  JoinKind = "full"
)

// Engine constructs the base LogicalPlan for a single table source, the
// entry point internal/bundle uses to seed plan assembly from each
// attached block; internal/query implements it.
type Engine interface {
	NewTableScan(source TableSource) (LogicalPlan, error)
}

// Package bundle implements Bundle (C4) and BundleBuilder (C5): the
// read-only snapshot and the append-only recorder of operations that
// together make up a bundle's public surface.
package bundle

import (
	"context"
	"strings"

	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/manifest"
	"bundlebase.dev/bundlebase/internal/ops"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

// ScanProvider builds the table source for one attached block's scan,
// the seam internal/index's index-aware provider (C8) wraps: it
// intercepts predicates and narrows to row-ids before falling back to
// block.Adapter.Scan. Bundle depends only on this interface, never on
// internal/index directly, avoiding an import cycle (the index engine
// itself depends on internal/state and internal/adapter). hints carries
// every predicate buildPlan could extract from this bundle's recorded
// Filter operations, in SQL-clause order; an index-aware provider can use
// hints[0] or narrow across all of them, a plain one ignores them.
type ScanProvider interface {
	Scan(ctx context.Context, block state.Block, hints []types.IndexPredicate) (planexec.TableSource, error)
}

// defaultScanProvider scans every block's adapter directly with no
// predicate/projection hints, used when no index-aware provider is wired.
type defaultScanProvider struct{}

func (defaultScanProvider) Scan(ctx context.Context, block state.Block, _ []types.IndexPredicate) (planexec.TableSource, error) {
	return block.Adapter.Scan(ctx, nil, nil)
}

// PredicateExtractor pulls the IndexPredicates a Filter operation's SQL
// expresses, when its shape is simple enough to recognize (an index-aware
// ScanProvider's job, kept out of Bundle itself to avoid depending on
// internal/ops' Filter field layout from this package's public surface).
type PredicateExtractor interface {
	Extract(op ops.Operation) []types.IndexPredicate
}

// Dependencies are the shared, process-wide handles every Bundle/Builder
// in a process needs: the query engine, the manifest Dependencies used
// to replay/resolve roots, and the (optional) index-aware scan provider
// and predicate extractor.
type Dependencies struct {
	Engine       planexec.Engine
	Manifest     manifest.Dependencies
	ScanProvider ScanProvider
	Predicates   PredicateExtractor
}

func (d Dependencies) scanProvider() ScanProvider {
	if d.ScanProvider != nil {
		return d.ScanProvider
	}
	return defaultScanProvider{}
}

// extractHints walks appliedOps and collects every IndexPredicate a
// wired PredicateExtractor can recognize, in operation order. Returns nil
// with no Predicates extractor wired, matching defaultScanProvider's
// no-hints behavior.
func (d Dependencies) extractHints(appliedOps []ops.Operation) []types.IndexPredicate {
	if d.Predicates == nil {
		return nil
	}
	var hints []types.IndexPredicate
	for _, op := range appliedOps {
		hints = append(hints, d.Predicates.Extract(op)...)
	}
	return hints
}

// Bundle is a read-only, versioned snapshot of attached blocks and
// recorded operations rooted at a URL. It never mutates and records no
// operations; mutation happens through Extend's Builder.
type Bundle struct {
	rootURL string
	version uint64
	state   *state.BundleState
	ops     []ops.Operation
	deps    Dependencies
}

// Open loads rootURL's full commit chain and returns the resulting Bundle.
func Open(ctx context.Context, rootURL string, deps Dependencies) (*Bundle, error) {
	loaded, err := manifest.Load(ctx, rootURL, deps.Manifest)
	if err != nil {
		return nil, err
	}
	return &Bundle{rootURL: rootURL, version: loaded.Version, state: loaded.State, ops: loaded.Operations, deps: deps}, nil
}

func (b *Bundle) RootURL() string { return b.rootURL }

func (b *Bundle) Schema() types.Schema { return b.state.Schema() }

func (b *Bundle) Name() string { return b.state.Name() }

func (b *Bundle) Description() string { return b.state.Description() }

func (b *Bundle) NumRows() types.RowCountEstimate { return b.state.RowCount() }

// State exposes the Bundle's underlying BundleState, used by callers
// (cmd/bbctl, internal/index wiring) that need to build an index-aware
// ScanProvider bound to this bundle's current index definitions before
// reopening with a fuller Dependencies value.
func (b *Bundle) State() *state.BundleState { return b.state }

// Operations returns the recorded commit messages in replay order,
// oldest first, across the from chain's flattened history.
func (b *Bundle) Operations(ctx context.Context) ([]string, error) {
	headers, err := b.History(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(headers))
	for i, h := range headers {
		out[len(headers)-1-i] = h.Message
	}
	return out, nil
}

// History returns this bundle's commits newest first, followed by its
// parent's history (recursively), matching manifest.Store.History's
// per-root ordering threaded across the from chain.
func (b *Bundle) History(ctx context.Context) ([]manifest.CommitHeader, error) {
	return history(ctx, b.rootURL, b.deps.Manifest)
}

func history(ctx context.Context, rootURL string, deps manifest.Dependencies) ([]manifest.CommitHeader, error) {
	blobs, err := deps.Resolver(rootURL)
	if err != nil {
		return nil, err
	}
	store := manifest.New(blobs)

	own, err := store.History(ctx)
	if err != nil {
		return nil, err
	}
	if len(own) == 0 {
		return nil, nil
	}

	latest, err := store.Read(ctx, manifestPathForVersion(ctx, store, own[0].Version))
	if err != nil {
		return own, nil // history headers alone are enough; tolerate from-lookup failure
	}
	if latest.From == nil {
		return own, nil
	}

	parent, err := history(ctx, *latest.From, deps)
	if err != nil {
		return own, nil
	}
	return append(own, parent...), nil
}

// manifestPathForVersion re-derives the on-disk key for version by
// re-listing the store; History() only returns header summaries, not keys.
func manifestPathForVersion(ctx context.Context, store *manifest.Store, version uint64) string {
	refs, err := store.List(ctx)
	if err != nil {
		return ""
	}
	for _, ref := range refs {
		if ref.Version == version {
			return ref.Path
		}
	}
	return ""
}

// View resolves a named view to its own read-only Bundle, loaded from
// the view's subtree rooted at {rootURL}/_manifest/view_{id}/.
func (b *Bundle) View(ctx context.Context, name string) (*Bundle, error) {
	viewID, ok := b.state.View(name)
	if !ok {
		return nil, bberr.Newf("Bundle.View", bberr.Validation, "unknown view %q", name)
	}
	return Open(ctx, joinRoot(b.rootURL, manifest.ViewRoot(string(viewID))), b.deps)
}

// joinRoot appends a manifest-relative key path to a bundle root URL.
func joinRoot(rootURL, suffix string) string {
	return strings.TrimSuffix(rootURL, "/") + "/" + strings.TrimSuffix(suffix, "/")
}

// Extend creates a Builder whose base is b. If targetURL equals b's own
// root, the Builder appends to the existing history (no from injected);
// otherwise the Builder's first commit carries from = b.rootURL.
func (b *Bundle) Extend(targetURL string) *Builder {
	fromURL := ""
	if targetURL != b.rootURL {
		fromURL = b.rootURL
	}
	return &Builder{
		base:      b,
		targetURL: targetURL,
		fromURL:   fromURL,
		state:     b.state.Clone(),
		deps:      b.deps,
	}
}

// buildPlan assembles the base logical plan: each attached block's scan
// (through the ScanProvider), UNION ALL'd in attach order, then every
// recorded operation's effect threaded through in order. AttachBlock's
// Apply is a no-op (see internal/ops) because its contribution — adding a
// scan to the union — happens in the block loop above, once, instead of
// through the generic per-operation Apply dispatch. Join/AttachToJoin are
// similar but need their own pass: collectJoinSides unions every side
// sharing a join name ahead of replay, so a Join's right-hand plan already
// reflects every AttachToJoin recorded for that name, including ones that
// appear later in appliedOps.
func (b *Bundle) buildPlan(ctx context.Context, appliedOps []ops.Operation) (planexec.LogicalPlan, error) {
	blocks := b.state.Blocks()
	if len(blocks) == 0 {
		return nil, bberr.Newf("Bundle.buildPlan", bberr.Validation, "no blocks attached")
	}

	hints := b.deps.extractHints(appliedOps)

	var plan planexec.LogicalPlan
	for _, blk := range blocks {
		source, err := b.deps.scanProvider().Scan(ctx, blk, hints)
		if err != nil {
			return nil, err
		}
		scan, err := b.deps.Engine.NewTableScan(source)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			plan = scan
			continue
		}
		plan, err = plan.UnionAll(scan)
		if err != nil {
			return nil, err
		}
	}

	joinSides, err := b.collectJoinSides(ctx, appliedOps)
	if err != nil {
		return nil, err
	}
	joined := map[string]bool{}

	for _, op := range appliedOps {
		switch o := op.(type) {
		case *ops.Join:
			if joined[o.Name] {
				continue
			}
			joined[o.Name] = true
			plan, err = plan.Join(joinSides[o.Name], o.Predicate, o.How, o.Name)
			if err != nil {
				return nil, err
			}
		case *ops.AttachToJoin:
			continue // folded into joinSides[o.Name] above
		default:
			plan, err = op.Apply(plan)
			if err != nil {
				return nil, err
			}
		}
	}
	return plan, nil
}

// collectJoinSides scans every Join/AttachToJoin operation's bound
// adapter and UNION ALLs same-named sides into one right-hand plan per
// join name, assembled once ahead of replay so a later AttachToJoin
// widens the same side an earlier Join already joins against.
func (b *Bundle) collectJoinSides(ctx context.Context, appliedOps []ops.Operation) (map[string]planexec.LogicalPlan, error) {
	sides := map[string]planexec.LogicalPlan{}
	for _, op := range appliedOps {
		var name string
		var a adapter.DataAdapter
		switch o := op.(type) {
		case *ops.Join:
			name, a = o.Name, o.Adapter()
		case *ops.AttachToJoin:
			name, a = o.Name, o.Adapter()
		default:
			continue
		}

		source, err := a.Scan(ctx, nil, nil)
		if err != nil {
			return nil, err
		}
		scan, err := b.deps.Engine.NewTableScan(source)
		if err != nil {
			return nil, err
		}

		existing, ok := sides[name]
		if !ok {
			sides[name] = scan
			continue
		}
		merged, err := existing.UnionAll(scan)
		if err != nil {
			return nil, err
		}
		sides[name] = merged
	}
	return sides, nil
}

// ExecuteStream assembles the logical plan from this bundle's recorded
// operations and hands it to the engine's streaming execute path. The
// façade never collects: back-pressure is pull-based at the BatchStream.
func (b *Bundle) ExecuteStream(ctx context.Context) (planexec.BatchStream, error) {
	plan, err := b.buildPlan(ctx, b.ops)
	if err != nil {
		return nil, err
	}
	return plan.ExecuteStream(ctx)
}

// Explain returns the assembled plan's human-readable description without
// executing it.
func (b *Bundle) Explain(ctx context.Context) (string, error) {
	plan, err := b.buildPlan(ctx, b.ops)
	if err != nil {
		return "", err
	}
	return plan.Explain()
}

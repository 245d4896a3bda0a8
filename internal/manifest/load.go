package manifest

import (
	"context"

	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/function"
	"bundlebase.dev/bundlebase/internal/ops"
	"bundlebase.dev/bundlebase/internal/objstore"
	"bundlebase.dev/bundlebase/internal/state"
)

// RootResolver turns a bundle root URL into the BlobStore backing it,
// letting manifest stay agnostic of how "file:///data/b1" or
// "s3://bucket/b1" map to a concrete objstore.BlobStore.
type RootResolver func(rootURL string) (objstore.BlobStore, error)

// Dependencies are the live, unserialized handles a replay needs to bind
// back onto operations decoded from YAML: the process-wide function
// registry, the adapter registry used to re-resolve each block's live
// DataAdapter, and the resolver used to walk the "from" chain.
type Dependencies struct {
	Functions *function.Registry
	Adapters  *adapter.Registry
	Resolver  RootResolver
}

// Loaded is the result of replaying one bundle root's full commit chain.
type Loaded struct {
	State   *state.BundleState
	Version uint64
	RootURL string
	// Operations is every change's operations, oldest first, across the
	// full from chain, with live resources already bound — the same list
	// internal/bundle threads through a freshly assembled plan's Apply.
	Operations []ops.Operation
}

// Load walks rootURL's "from" chain back to its origin, then replays
// every commit's changes in order against a fresh state, returning the
// final BundleState. A cyclic "from" chain is reported as bberr.Cycle.
func Load(ctx context.Context, rootURL string, deps Dependencies) (*Loaded, error) {
	return load(ctx, rootURL, deps, map[string]bool{})
}

func load(ctx context.Context, rootURL string, deps Dependencies, visiting map[string]bool) (*Loaded, error) {
	if visiting[rootURL] {
		return nil, bberr.Newf("manifest.Load", bberr.Cycle, "from chain is cyclic at %q", rootURL)
	}
	visiting[rootURL] = true

	blobs, err := deps.Resolver(rootURL)
	if err != nil {
		return nil, bberr.New("manifest.Load", bberr.IO, err).WithContext("root", rootURL)
	}
	store := New(blobs)

	latest, ok, err := store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Loaded{State: state.New(deps.Functions), Version: 0, RootURL: rootURL}, nil
	}

	m, err := store.Read(ctx, latest.Path)
	if err != nil {
		return nil, err
	}

	var base *state.BundleState
	var parentOps []ops.Operation
	if m.From != nil {
		parent, err := load(ctx, *m.From, deps, visiting)
		if err != nil {
			return nil, err
		}
		base = parent.State
		parentOps = parent.Operations
	} else {
		base = state.New(deps.Functions)
	}

	s := base.Clone()
	var ownOps []ops.Operation
	for _, change := range m.Changes {
		for _, op := range change.Operations {
			if err := bindLiveResources(ctx, op, deps); err != nil {
				return nil, err
			}
			if err := op.Check(s); err != nil {
				return nil, err
			}
			if err := op.Reconfigure(s); err != nil {
				return nil, err
			}
			ownOps = append(ownOps, op)
		}
	}

	return &Loaded{State: s, Version: m.Version, RootURL: rootURL, Operations: append(parentOps, ownOps...)}, nil
}

// bindLiveResources resolves and attaches the live, unserialized handles
// (DataAdapter instances, joined-side schemas) that a decoded operation
// needs before check/reconfigure can run.
func bindLiveResources(ctx context.Context, op ops.Operation, deps Dependencies) error {
	switch o := op.(type) {
	case *ops.AttachBlock:
		a, err := deps.Adapters.Build(ctx, o.SourceURL, o.AdapterHint)
		if err != nil {
			return bberr.New("manifest.Load", bberr.DataSource, err).WithContext("source_url", o.SourceURL)
		}
		o.BindAdapter(a)
	case *ops.AttachToJoin:
		a, err := deps.Adapters.Build(ctx, o.SourceURL, "")
		if err != nil {
			return bberr.New("manifest.Load", bberr.DataSource, err).WithContext("source_url", o.SourceURL)
		}
		o.BindAdapter(a)
	case *ops.Join:
		a, err := deps.Adapters.Build(ctx, o.SourceURL, "")
		if err != nil {
			return bberr.New("manifest.Load", bberr.DataSource, err).WithContext("source_url", o.SourceURL)
		}
		schema, err := a.Schema(ctx)
		if err != nil {
			return bberr.New("manifest.Load", bberr.DataSource, err).WithContext("source_url", o.SourceURL)
		}
		o.BindRightSchema(schema)
		o.BindAdapter(a)
	}
	return nil
}

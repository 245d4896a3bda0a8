package main

import (
	"context"
	"strings"

	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/adapter/couchdapter"
	"bundlebase.dev/bundlebase/internal/adapter/csvadapter"
	"bundlebase.dev/bundlebase/internal/adapter/functionadapter"
	"bundlebase.dev/bundlebase/internal/adapter/jsonadapter"
	"bundlebase.dev/bundlebase/internal/bundle"
	"bundlebase.dev/bundlebase/internal/config"
	"bundlebase.dev/bundlebase/internal/function"
	"bundlebase.dev/bundlebase/internal/index"
	"bundlebase.dev/bundlebase/internal/manifest"
	"bundlebase.dev/bundlebase/internal/objstore"
	"bundlebase.dev/bundlebase/internal/query"
)

// env is the set of process-wide handles every subcommand shares: the
// loaded configuration, the function registry, the adapter registry, and
// the root resolver. Each subcommand builds one per invocation via buildEnv.
type env struct {
	cfg       *config.Config
	functions *function.Registry
	adapters  *adapter.Registry
	resolver  manifest.RootResolver
	cache     index.Cache
}

// buildEnv loads configuration and wires every registry bbctl's adapters
// and index cache need, grounded on the same registries internal/bundle's
// own tests assemble by hand (see bundle/bundle_test.go's setupDeps).
func buildEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	functions := function.New()

	adapters := adapter.NewRegistry()
	adapters.RegisterExtension(".csv", func(_ context.Context, sourceURL, _ string) (adapter.DataAdapter, error) {
		return csvadapter.New(sourceURL), nil
	})
	adapters.RegisterExtension(".json", func(_ context.Context, sourceURL, _ string) (adapter.DataAdapter, error) {
		return jsonadapter.New(sourceURL), nil
	})
	adapters.RegisterScheme("function", functionadapter.NewFactory(functions))
	adapters.RegisterScheme("couch", func(ctx context.Context, _, _ string) (adapter.DataAdapter, error) {
		return couchdapter.New(ctx, cfg.Couch)
	})

	cache, err := index.NewCache(cfg.IndexCache)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:       cfg,
		functions: functions,
		adapters:  adapters,
		resolver:  buildResolver(cfg),
		cache:     cache,
	}, nil
}

// buildResolver maps a bundle root URL onto the BlobStore backing it:
// "s3://bucket/prefix" roots resolve through objstore.NewS3Store using
// cfg's object-store settings, everything else falls back to
// manifest.DefaultResolver's local-filesystem behavior.
func buildResolver(cfg *config.Config) manifest.RootResolver {
	return func(rootURL string) (objstore.BlobStore, error) {
		if strings.HasPrefix(rootURL, "s3://") {
			prefix := strings.TrimPrefix(rootURL, "s3://")
			if idx := strings.Index(prefix, "/"); idx >= 0 {
				prefix = prefix[idx+1:]
			} else {
				prefix = ""
			}
			return objstore.NewS3Store(context.Background(), cfg.ObjectStore, prefix)
		}
		return manifest.DefaultResolver(rootURL)
	}
}

// manifestDeps builds the manifest.Dependencies every Open/Builder call
// needs, shared across a single bbctl invocation.
func (e *env) manifestDeps() manifest.Dependencies {
	return manifest.Dependencies{
		Functions: e.functions,
		Adapters:  e.adapters,
		Resolver:  e.resolver,
	}
}

// openBundle opens root with a plain (non-index-aware) ScanProvider, the
// cheapest path, used by commands that never execute a plan.
func (e *env) openBundle(ctx context.Context, root string) (*bundle.Bundle, error) {
	return bundle.Open(ctx, root, bundle.Dependencies{
		Engine:   query.NewEngine(e.cfg.Query),
		Manifest: e.manifestDeps(),
	})
}

// openBundleIndexed opens root twice: once to learn its current index
// definitions, then again with an index.Provider wired as both
// ScanProvider and PredicateExtractor, so Filter/ExecuteStream/Explain
// narrow through any index covering their predicates. The first open is
// cheap (no plan is ever built from it); the second is what every
// query-driving command actually uses.
func (e *env) openBundleIndexed(ctx context.Context, root string) (*bundle.Bundle, error) {
	plain, err := e.openBundle(ctx, root)
	if err != nil {
		return nil, err
	}

	provider := index.NewProvider(root, e.resolver, e.cache, plain.State())
	return bundle.Open(ctx, root, bundle.Dependencies{
		Engine:       query.NewEngine(e.cfg.Query),
		Manifest:     e.manifestDeps(),
		ScanProvider: provider,
		Predicates:   provider,
	})
}

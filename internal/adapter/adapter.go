// Package adapter defines the DataAdapter capability (§4.5, C6): the
// pluggable contract a concrete data source (CSV, JSON, CouchDB, or a
// registered function) implements so internal/state can attach it as a
// Block without knowing its concrete source type. Adapters are supplied
// externally and registered by URL scheme/extension; this package also
// hosts that registry.
package adapter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

// DataAdapter is the pluggable block-reader contract. schema() must be
// stable for a fixed (url, version): reopening the same source at the
// same version must yield an identical Schema.
type DataAdapter interface {
	// Schema returns the adapter's column schema.
	Schema(ctx context.Context) (types.Schema, error)

	// ApproxRowCount returns an estimated row count, used to seed a
	// block's RowCountEstimate on attach.
	ApproxRowCount(ctx context.Context) (uint64, error)

	// Scan returns a table source implementing planexec.TableSource over
	// the adapter's full data, honoring the given predicate/projection
	// hints as an optimization (adapters that cannot use them simply scan
	// everything and let the query engine filter).
	Scan(ctx context.Context, predicateHints []types.IndexPredicate, projectionHints []string) (planexec.TableSource, error)

	// ByteSize returns the adapter's on-disk/source size in bytes, recorded
	// on the AttachBlock operation and the resulting state.Block.
	ByteSize(ctx context.Context) (uint64, error)
}

// Factory constructs a DataAdapter for a source URL plus an optional
// adapter hint (e.g. "csv", "json", "couch") disambiguating when the
// scheme/extension alone is insufficient.
type Factory func(ctx context.Context, sourceURL, adapterHint string) (DataAdapter, error)

// Registry maps a URL scheme or file extension to the Factory that
// builds adapters for it, mirroring the file-backed, mutex-guarded
// registration shape used elsewhere in this codebase for name→capability
// lookups.
type Registry struct {
	mu       sync.RWMutex
	byScheme map[string]Factory
	byExt    map[string]Factory
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		byScheme: make(map[string]Factory),
		byExt:    make(map[string]Factory),
	}
}

// RegisterScheme registers factory for URLs whose scheme matches scheme
// (e.g. "function" for function:// URLs, "couch" for couch:// URLs).
func (r *Registry) RegisterScheme(scheme string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byScheme[scheme] = factory
}

// RegisterExtension registers factory for file URLs whose extension
// matches ext (e.g. ".csv", ".json").
func (r *Registry) RegisterExtension(ext string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byExt[ext] = factory
}

// Build constructs a DataAdapter for sourceURL, preferring the scheme
// registration, then falling back to extension matching, then the
// explicit adapterHint as a direct factory key.
func (r *Registry) Build(ctx context.Context, sourceURL, adapterHint string) (DataAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if scheme, _, ok := strings.Cut(sourceURL, "://"); ok {
		if factory, exists := r.byScheme[scheme]; exists {
			return factory(ctx, sourceURL, adapterHint)
		}
	}

	for ext, factory := range r.byExt {
		if strings.HasSuffix(sourceURL, ext) {
			return factory(ctx, sourceURL, adapterHint)
		}
	}

	if adapterHint != "" {
		if factory, exists := r.byScheme[adapterHint]; exists {
			return factory(ctx, sourceURL, adapterHint)
		}
	}

	return nil, fmt.Errorf("adapter: no adapter registered for source %q (hint %q)", sourceURL, adapterHint)
}

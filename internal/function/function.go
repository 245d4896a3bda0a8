// Package function implements the process-wide function registry (C11):
// a name -> (output schema, paginated implementation) map. Declaring a
// function's signature travels with the manifest via the DefineFunction
// operation; registering its implementation is a local, explicit side
// effect (SetImpl) that does not serialize. Opening a bundle that
// references a function without a registered impl fails at first scan.
package function

import (
	"sync"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

// Impl is a paginated synthetic data source: Next returns the page'th
// batch, or (zero value, false) once pages are exhausted. Implementations
// must be safe to call concurrently from multiple scans.
type Impl interface {
	Next(page uint64) (planexec.Batch, bool, error)
}

// entry pairs a declared schema with its optional registered implementation.
type entry struct {
	schema types.Schema
	impl   Impl
}

// Registry is the process-wide, concurrently-readable name->entry map of
// in-process function implementations, guarded by a read-write mutex.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	cursors *cursorStore // optional, set by WithCursorStore
}

// New creates an empty function registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Declare records name's output schema, as produced by the DefineFunction
// operation's reconfigure phase. It does not register an implementation;
// calling Declare again for an existing name updates only schema.
func (r *Registry) Declare(name string, schema types.Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		e = &entry{}
		r.entries[name] = e
	}
	e.schema = schema
}

// SetImpl registers name's implementation. This is the explicit local
// side effect spec.md requires: the implementation itself is never
// serialized into a manifest.
func (r *Registry) SetImpl(name string, impl Impl) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return bberr.Newf("function.SetImpl", bberr.ConfigMissing, "function %q has no declared signature", name)
	}
	e.impl = impl
	return nil
}

// Schema returns name's declared output schema.
func (r *Registry) Schema(name string) (types.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return types.Schema{}, false
	}
	return e.schema, true
}

// Next calls name's registered implementation for the given page. It
// returns ConfigMissing if name was declared but never had SetImpl called
// — the UnknownFunctionImpl(name) failure spec.md requires at first scan.
func (r *Registry) Next(name string, page uint64) (planexec.Batch, bool, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok || e.impl == nil {
		return planexec.Batch{}, false, bberr.Newf("function.Next", bberr.ConfigMissing, "no registered implementation for function %q", name)
	}

	batch, more, err := e.impl.Next(page)
	if err == nil && r.cursors != nil {
		r.cursors.save(name, page)
	}
	return batch, more, err
}

// LastPage returns the last page successfully served for name, for
// resuming a paginated scan after a crash. Only meaningful when the
// registry was built WithCursorStore; otherwise it always returns (0, false).
func (r *Registry) LastPage(name string) (uint64, bool) {
	if r.cursors == nil {
		return 0, false
	}
	return r.cursors.load(name)
}

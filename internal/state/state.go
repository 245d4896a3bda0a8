// Package state implements BundleState (C3): the shared, mutable snapshot
// threaded through an operation's check/reconfigure lifecycle and cloned
// into every Bundle/Builder that reads or extends it.
package state

import (
	"sync"

	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/function"
	"bundlebase.dev/bundlebase/internal/types"
)

// Block is one attached data source, carrying its content-addressed
// identity, cached schema, row-count estimate, and the live adapter
// instance used to scan it.
type Block struct {
	ID          types.ObjectId
	Version     string
	SourceURL   string
	AdapterHint string
	Schema      types.Schema
	RowCount    types.RowCountEstimate
	ByteSize    uint64
	Adapter     adapter.DataAdapter
}

func (b Block) VersionedID() types.VersionedBlockId {
	return types.VersionedBlockId{BlockID: b.ID, Version: b.Version}
}

// View is one entry in the bundle's name -> view_id table (C9).
type View struct {
	Name   string
	ViewID types.ObjectId
}

// BundleState holds everything a Bundle/Builder needs to answer schema,
// row-count, and execution queries: name/description metadata, the
// current schema, attached blocks in attach order, named views, index
// definitions, and a handle to the process-wide function registry.
//
// Clone is O(1): slices and maps are Go reference types, so a shallow
// struct copy shares the underlying storage until a mutator replaces it
// with a new one (copy-on-write), exactly like types.Schema's With*
// methods. No field is ever mutated in place after Clone; every mutator
// below builds a new slice/map and assigns it to the clone.
type BundleState struct {
	mu sync.RWMutex

	name        string
	description string
	schema      types.Schema
	rowCount    types.RowCountEstimate
	blocks      []Block
	views       map[string]types.ObjectId
	indexDefs   map[types.ObjectId]types.IndexDefinition
	functions   *function.Registry
}

// New creates an empty BundleState rooted at a fresh origin, sharing
// functions as its process-wide function registry handle.
func New(functions *function.Registry) *BundleState {
	return &BundleState{
		views:     make(map[string]types.ObjectId),
		indexDefs: make(map[types.ObjectId]types.IndexDefinition),
		functions: functions,
	}
}

// Clone returns an independent BundleState snapshot. It is cheap: the
// returned state shares slices/maps with the receiver until one of its
// mutators replaces them.
func (s *BundleState) Clone() *BundleState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &BundleState{
		name:        s.name,
		description: s.description,
		schema:      s.schema,
		rowCount:    s.rowCount,
		blocks:      s.blocks,
		views:       s.views,
		indexDefs:   s.indexDefs,
		functions:   s.functions,
	}
}

func (s *BundleState) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *BundleState) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *BundleState) Description() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.description
}

func (s *BundleState) SetDescription(description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.description = description
}

func (s *BundleState) Schema() types.Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema
}

func (s *BundleState) SetSchema(schema types.Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = schema
}

func (s *BundleState) RowCount() types.RowCountEstimate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rowCount
}

func (s *BundleState) SetRowCount(estimate types.RowCountEstimate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCount = estimate
}

// Blocks returns a defensive copy of the attached blocks in attach order.
func (s *BundleState) Blocks() []Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// AppendBlock attaches a new block, replacing the blocks slice rather
// than mutating it in place.
func (s *BundleState) AppendBlock(b Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]Block, len(s.blocks), len(s.blocks)+1)
	copy(next, s.blocks)
	s.blocks = append(next, b)
}

// Views returns a defensive copy of the name -> view_id table.
func (s *BundleState) Views() map[string]types.ObjectId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.ObjectId, len(s.views))
	for k, v := range s.views {
		out[k] = v
	}
	return out
}

func (s *BundleState) View(name string) (types.ObjectId, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.views[name]
	return id, ok
}

func (s *BundleState) AttachView(name string, viewID types.ObjectId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]types.ObjectId, len(s.views)+1)
	for k, v := range s.views {
		next[k] = v
	}
	next[name] = viewID
	s.views = next
}

// IndexDefinitions returns a defensive copy of the index_id -> definition
// table.
func (s *BundleState) IndexDefinitions() map[types.ObjectId]types.IndexDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[types.ObjectId]types.IndexDefinition, len(s.indexDefs))
	for k, v := range s.indexDefs {
		out[k] = v
	}
	return out
}

func (s *BundleState) IndexDefinition(id types.ObjectId) (types.IndexDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.indexDefs[id]
	return def, ok
}

func (s *BundleState) SetIndexDefinition(def types.IndexDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[types.ObjectId]types.IndexDefinition, len(s.indexDefs)+1)
	for k, v := range s.indexDefs {
		next[k] = v
	}
	next[def.ID] = def
	s.indexDefs = next
}

func (s *BundleState) DropIndexDefinition(id types.ObjectId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[types.ObjectId]types.IndexDefinition, len(s.indexDefs))
	for k, v := range s.indexDefs {
		if k == id {
			continue
		}
		next[k] = v
	}
	s.indexDefs = next
}

// Functions returns the shared process-wide function registry handle.
func (s *BundleState) Functions() *function.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.functions
}

package bundle

import (
	"context"
	"time"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/manifest"
	"bundlebase.dev/bundlebase/internal/ops"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

// Builder accumulates operations against a working BundleState and
// flushes them as a single manifest.Change on Commit. Every mutator runs
// check then reconfigure immediately (so a caller sees failures at the
// point of the call, not at commit time) and only appends to pending on
// success — a failed check never becomes part of the eventual commit.
type Builder struct {
	base      *Bundle
	targetURL string
	fromURL   string // set only on the Builder's first commit against a new root
	state     *state.BundleState
	pending   []ops.Operation
	deps      Dependencies
}

// record runs op's check/reconfigure lifecycle against the working
// state and appends it to pending only once both succeed.
func (b *Builder) record(op ops.Operation) error {
	if err := op.Check(b.state); err != nil {
		return err
	}
	if err := op.Reconfigure(b.state); err != nil {
		return err
	}
	b.pending = append(b.pending, op)
	return nil
}

// AttachBlock resolves sourceURL through the Builder's adapter registry,
// derives schema/row-count/byte-size from the resolved adapter, assigns a
// fresh block id and version, and records an AttachBlock operation.
func (b *Builder) AttachBlock(ctx context.Context, sourceURL, adapterHint string) error {
	a, err := b.deps.Manifest.Adapters.Build(ctx, sourceURL, adapterHint)
	if err != nil {
		return bberr.New("Builder.AttachBlock", bberr.DataSource, err).WithContext("source_url", sourceURL)
	}
	schema, err := a.Schema(ctx)
	if err != nil {
		return bberr.New("Builder.AttachBlock", bberr.DataSource, err).WithContext("source_url", sourceURL)
	}
	rows, err := a.ApproxRowCount(ctx)
	if err != nil {
		return bberr.New("Builder.AttachBlock", bberr.DataSource, err).WithContext("source_url", sourceURL)
	}
	bytes, err := a.ByteSize(ctx)
	if err != nil {
		return bberr.New("Builder.AttachBlock", bberr.DataSource, err).WithContext("source_url", sourceURL)
	}

	op := &ops.AttachBlock{
		SourceURL:   sourceURL,
		AdapterHint: adapterHint,
		BlockID:     string(types.NewObjectId()),
		Version:     string(types.NewObjectId()),
		NumRows:     rows,
		Bytes:       bytes,
		Schema:      schema,
	}
	op.BindAdapter(a)
	return b.record(op)
}

// Filter records a Filter operation restricting rows to sql.
func (b *Builder) Filter(sql string, params ...interface{}) error {
	return b.record(&ops.Filter{SQLExpr: sql, Params: params})
}

// Select records a Select operation projecting sqlOrColumns.
func (b *Builder) Select(sqlOrColumns string, params ...interface{}) error {
	return b.record(&ops.Select{SQLOrColumns: sqlOrColumns, Params: params})
}

// RemoveColumns records a RemoveColumns operation dropping names.
func (b *Builder) RemoveColumns(names ...string) error {
	return b.record(&ops.RemoveColumns{Names: names})
}

// RenameColumn records a RenameColumn operation.
func (b *Builder) RenameColumn(from, to string) error {
	return b.record(&ops.RenameColumn{From: from, To: to})
}

// SetName records a SetName operation.
func (b *Builder) SetName(name string) error {
	return b.record(&ops.SetName{S: name})
}

// SetDescription records a SetDescription operation.
func (b *Builder) SetDescription(description string) error {
	return b.record(&ops.SetDescription{S: description})
}

// Join resolves otherURL's schema and records a Join operation against
// name, predicate, and join kind how.
func (b *Builder) Join(ctx context.Context, name, otherURL, predicate string, how planexec.JoinKind) error {
	a, err := b.deps.Manifest.Adapters.Build(ctx, otherURL, "")
	if err != nil {
		return bberr.New("Builder.Join", bberr.DataSource, err).WithContext("source_url", otherURL)
	}
	schema, err := a.Schema(ctx)
	if err != nil {
		return bberr.New("Builder.Join", bberr.DataSource, err).WithContext("source_url", otherURL)
	}
	op := &ops.Join{Name: name, SourceURL: otherURL, Predicate: predicate, How: how}
	op.BindRightSchema(schema)
	op.BindAdapter(a)
	return b.record(op)
}

// AttachToJoin attaches another source into the already-joined side name.
func (b *Builder) AttachToJoin(ctx context.Context, name, sourceURL string) error {
	a, err := b.deps.Manifest.Adapters.Build(ctx, sourceURL, "")
	if err != nil {
		return bberr.New("Builder.AttachToJoin", bberr.DataSource, err).WithContext("source_url", sourceURL)
	}
	op := &ops.AttachToJoin{Name: name, SourceURL: sourceURL}
	op.BindAdapter(a)
	return b.record(op)
}

// DefineFunction declares a named function output schema.
func (b *Builder) DefineFunction(name string, outputSchema types.Schema) error {
	return b.record(&ops.DefineFunction{Name: name, OutputSchema: outputSchema})
}

// CreateIndex declares a new column index, assigning it a fresh id, and
// returns the id so the caller can follow up with IndexBlocks.
func (b *Builder) CreateIndex(column string) (types.ObjectId, error) {
	id := types.NewObjectId()
	if err := b.record(&ops.CreateIndex{Column: column, ID: id}); err != nil {
		return "", err
	}
	return id, nil
}

// IndexBlocks records that indexID's build now covers blocks, laid out
// on disk at layoutPath.
func (b *Builder) IndexBlocks(indexID types.ObjectId, blocks []types.VersionedBlockId, layoutPath string, cardinality uint64) error {
	return b.record(&ops.IndexBlocks{IndexID: indexID, Blocks: blocks, LayoutPath: layoutPath, Cardinality: cardinality})
}

// DropIndex removes a previously created index definition.
func (b *Builder) DropIndex(indexID types.ObjectId) error {
	return b.record(&ops.DropIndex{ID: indexID})
}

// AttachView records an AttachView operation, the hook internal/view's
// attach_view implementation calls once it has committed the view's
// subtree manifest and allocated its id.
func (b *Builder) AttachView(name string, viewID types.ObjectId) error {
	return b.record(&ops.AttachView{Name: name, ViewID: viewID})
}

// State exposes the Builder's working BundleState, used by internal/view
// to read the current schema/blocks when capturing a view's source
// operations and by callers previewing schema/row-count before commit.
func (b *Builder) State() *state.BundleState { return b.state }

// Status reports the operation types recorded since the last commit.
func (b *Builder) Status() []string {
	out := make([]string, len(b.pending))
	for i, op := range b.pending {
		out[i] = op.Type()
	}
	return out
}

// Commit flushes pending operations as a single manifest.Change and
// writes a new manifest version. A Commit with no pending operations is
// a no-op returning the current version. On success pending is cleared
// and the Builder's base reflects the newly committed state.
func (b *Builder) Commit(ctx context.Context, author, message string) (*Bundle, error) {
	if len(b.pending) == 0 {
		return b.base, nil
	}

	blobs, err := b.deps.Manifest.Resolver(b.targetURL)
	if err != nil {
		return nil, bberr.New("Builder.Commit", bberr.IO, err).WithContext("root", b.targetURL)
	}
	store := manifest.New(blobs)

	latest, ok, err := store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	version := uint64(1)
	if ok {
		version = latest.Version + 1
	}

	var from *string
	if !ok && b.fromURL != "" {
		f := b.fromURL
		from = &f
	}

	m := &manifest.Manifest{
		Author:  author,
		Message: message,
		From:    from,
		Version: version,
		Changes: []manifest.Change{{ID: string(types.NewObjectId()), Description: message, Operations: b.pending}},
	}
	m.Timestamp = time.Now().UTC()

	if _, err := store.Write(ctx, m); err != nil {
		return nil, err
	}

	committedOps := append(append([]ops.Operation{}, b.base.ops...), b.pending...)
	committed := &Bundle{rootURL: b.targetURL, version: version, state: b.state, ops: committedOps, deps: b.deps}
	b.base = committed
	b.fromURL = ""
	b.pending = nil
	return committed, nil
}

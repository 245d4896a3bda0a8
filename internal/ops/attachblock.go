package ops

import (
	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

// AttachBlock attaches one data source as a new block. Its manifest-facing
// fields are plain and serializable; the live DataAdapter instance they
// describe is resolved out-of-band (by the Builder when recording, or by
// the manifest loader when replaying) and bound via BindAdapter before
// Check/Reconfigure run — the adapter handle itself never serializes.
type AttachBlock struct {
	SourceURL   string      `yaml:"source_url"`
	AdapterHint string      `yaml:"adapter_hint,omitempty"`
	BlockID     string      `yaml:"block_id"`
	Version     string      `yaml:"version"`
	Layout      string      `yaml:"layout,omitempty"`
	NumRows     uint64      `yaml:"num_rows"`
	Bytes       uint64      `yaml:"bytes"`
	Schema      types.Schema `yaml:"schema"`

	resolvedAdapter adapter.DataAdapter
}

// BindAdapter attaches the live adapter instance this block's source_url
// and adapter_hint resolve to. Must be called before Check/Reconfigure.
func (o *AttachBlock) BindAdapter(a adapter.DataAdapter) {
	o.resolvedAdapter = a
}

func (o *AttachBlock) Type() string { return TypeAttachBlock }

func (o *AttachBlock) Check(_ *state.BundleState) error {
	if o.SourceURL == "" {
		return bberr.Newf("AttachBlock.Check", bberr.Validation, "source_url must not be empty")
	}
	if o.BlockID == "" {
		return bberr.Newf("AttachBlock.Check", bberr.Validation, "block_id must not be empty")
	}
	if o.Version == "" {
		return bberr.Newf("AttachBlock.Check", bberr.Validation, "version must not be empty")
	}
	if o.Schema.Len() == 0 {
		return bberr.Newf("AttachBlock.Check", bberr.Validation, "schema must have at least one column")
	}
	if o.resolvedAdapter == nil {
		return bberr.Newf("AttachBlock.Check", bberr.DataSource, "no adapter resolved for %q", o.SourceURL)
	}
	return nil
}

// Reconfigure unions the block's schema into the current schema (columns
// only on one side become nullable, first-attach determines column
// order), appends the block, and adds its row count additively per the
// UNION ALL row-count rule.
func (o *AttachBlock) Reconfigure(s *state.BundleState) error {
	current := s.Schema()
	if current.Len() == 0 {
		s.SetSchema(o.Schema)
	} else {
		if err := checkTypeCompatible(current, o.Schema); err != nil {
			return err
		}
		s.SetSchema(current.Union(o.Schema))
	}

	s.AppendBlock(state.Block{
		ID:          types.ObjectId(o.BlockID),
		Version:     o.Version,
		SourceURL:   o.SourceURL,
		AdapterHint: o.AdapterHint,
		Schema:      o.Schema,
		RowCount:    types.RowCountEstimate{Value: o.NumRows},
		ByteSize:    o.Bytes,
		Adapter:     o.resolvedAdapter,
	})

	s.SetRowCount(s.RowCount().Add(types.RowCountEstimate{Value: o.NumRows}))
	return nil
}

// checkTypeCompatible requires columns shared by both schemas to agree on
// Kind exactly (widening is future work, see the Open Questions note in
// DESIGN.md).
func checkTypeCompatible(existing, incoming types.Schema) error {
	for _, f := range incoming.Fields() {
		current, ok := existing.Field(f.Name)
		if !ok {
			continue
		}
		if current.Type.Kind != f.Type.Kind {
			return bberr.Newf("AttachBlock.Reconfigure", bberr.Schema, "column %q: expected %s, got %s", f.Name, current.Type.Kind, f.Type.Kind)
		}
	}
	return nil
}

// Apply is a no-op: folding the new block's data into the stream happens
// once, at initial plan assembly in internal/bundle (buildPlan), which unions every
// attached block's table scan before any operation's Apply runs.
func (o *AttachBlock) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan, nil
}

package ops

import (
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

// IndexBlocks records that a build of index_id now covers the given
// block versions, each at the given on-disk layout path. Cardinality
// records the build's total_entries in the manifest; Reconfigure does not
// keep it in state.
type IndexBlocks struct {
	IndexID     types.ObjectId          `yaml:"index_id"`
	Blocks      []types.VersionedBlockId `yaml:"blocks"`
	LayoutPath  string                   `yaml:"layout_path"`
	Cardinality uint64                   `yaml:"cardinality"`
}

func (o *IndexBlocks) Type() string { return TypeIndexBlocks }

func (o *IndexBlocks) Check(s *state.BundleState) error {
	if _, exists := s.IndexDefinition(o.IndexID); !exists {
		return bberr.Newf("IndexBlocks.Check", bberr.Validation, "unknown index %q", o.IndexID)
	}
	if len(o.Blocks) == 0 {
		return bberr.Newf("IndexBlocks.Check", bberr.Validation, "blocks must not be empty")
	}
	if o.LayoutPath == "" {
		return bberr.Newf("IndexBlocks.Check", bberr.Validation, "layout_path must not be empty")
	}
	return nil
}

func (o *IndexBlocks) Reconfigure(s *state.BundleState) error {
	def, _ := s.IndexDefinition(o.IndexID)
	refs := make([]types.IndexedBlockRef, 0, len(def.IndexedBlocks)+len(o.Blocks))
	refs = append(refs, def.IndexedBlocks...)
	for _, b := range o.Blocks {
		refs = append(refs, types.IndexedBlockRef{Block: b, Path: o.LayoutPath})
	}
	def.IndexedBlocks = refs
	s.SetIndexDefinition(def)
	return nil
}

func (o *IndexBlocks) Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	return plan, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"bundlebase.dev/bundlebase/internal/index"
	"bundlebase.dev/bundlebase/internal/types"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "manage column indexes",
	}
	cmd.AddCommand(newIndexCreateCmd(), newIndexBuildCmd())
	return cmd
}

func newIndexCreateCmd() *cobra.Command {
	var column, author, message string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "declare a new, as-yet-unbuilt column index and commit it",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := requireRoot(cmd)
			if err != nil {
				return err
			}

			ctx := context.Background()
			e, err := buildEnv(ctx)
			if err != nil {
				return err
			}

			base, err := e.openBundle(ctx, root)
			if err != nil {
				return err
			}

			builder := base.Extend(root)
			id, err := builder.CreateIndex(column)
			if err != nil {
				return err
			}

			if _, err := builder.Commit(ctx, author, message); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created index %s on column %q\n", id, column)
			return nil
		},
	}

	cmd.Flags().StringVar(&column, "column", "", "column to index (required)")
	cmd.Flags().StringVar(&author, "author", "", "commit author (required)")
	cmd.Flags().StringVar(&message, "message", "", "commit message (required)")
	cmd.MarkFlagRequired("column")
	cmd.MarkFlagRequired("author")
	cmd.MarkFlagRequired("message")
	return cmd
}

func newIndexBuildCmd() *cobra.Command {
	var indexID, author, message string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "build an index file covering every currently attached block and commit it",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := requireRoot(cmd)
			if err != nil {
				return err
			}

			ctx := context.Background()
			e, err := buildEnv(ctx)
			if err != nil {
				return err
			}

			base, err := e.openBundle(ctx, root)
			if err != nil {
				return err
			}

			st := base.State()
			def, ok := st.IndexDefinition(types.ObjectId(indexID))
			if !ok {
				return fmt.Errorf("index %s: not declared, run 'index create' first", indexID)
			}

			blocks := st.Blocks()
			if len(blocks) == 0 {
				return fmt.Errorf("bundle has no attached blocks to index")
			}

			sources := make([]index.BuildSource, len(blocks))
			covered := make([]types.VersionedBlockId, len(blocks))
			for i, blk := range blocks {
				scan, err := blk.Adapter.Scan(ctx, nil, nil)
				if err != nil {
					return err
				}
				vb := types.VersionedBlockId{BlockID: blk.ID, Version: blk.Version}
				sources[i] = index.BuildSource{Block: vb, Scan: scan}
				covered[i] = vb
			}

			result, err := index.Build(ctx, def.Column, sources)
			if err != nil {
				return err
			}

			blobs, err := e.resolver(root)
			if err != nil {
				return err
			}
			layoutPath := fmt.Sprintf("_index/%s.bbidx", def.ID)
			if err := blobs.PutAtomic(ctx, layoutPath, result.Bytes); err != nil {
				return err
			}

			builder := base.Extend(root)
			if err := builder.IndexBlocks(def.ID, covered, layoutPath, result.TotalEntries); err != nil {
				return err
			}
			if _, err := builder.Commit(ctx, author, message); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "built index %s: %d entries over %d rows across %d block(s)\n",
				def.ID, result.TotalEntries, result.TotalRows, len(blocks))
			return nil
		},
	}

	cmd.Flags().StringVar(&indexID, "index-id", "", "index id returned by 'index create' (required)")
	cmd.Flags().StringVar(&author, "author", "", "commit author (required)")
	cmd.Flags().StringVar(&message, "message", "", "commit message (required)")
	cmd.MarkFlagRequired("index-id")
	cmd.MarkFlagRequired("author")
	cmd.MarkFlagRequired("message")
	return cmd
}

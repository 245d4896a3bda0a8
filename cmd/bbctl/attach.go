package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newAttachCmd is commit's single-purpose shorthand for the common case of
// attaching exactly one block.
func newAttachCmd() *cobra.Command {
	var source, hint, author, message string

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "attach one data source to a bundle and commit",
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
			if err := builder.AttachBlock(ctx, source, hint); err != nil {
				return err
			}

			committed, err := builder.Commit(ctx, author, message)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attached %s to %s\n", source, committed.RootURL())
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "source URL or path (required)")
	cmd.Flags().StringVar(&hint, "adapter-hint", "", "adapter hint, disambiguating when the extension/scheme alone is insufficient")
	cmd.Flags().StringVar(&author, "author", "", "commit author (required)")
	cmd.Flags().StringVar(&message, "message", "", "commit message (required)")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("author")
	cmd.MarkFlagRequired("message")
	return cmd
}

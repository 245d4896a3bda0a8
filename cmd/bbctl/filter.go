package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newFilterCmd is commit's single-purpose shorthand for recording one
// Filter operation.
func newFilterCmd() *cobra.Command {
	var expr, params, author, message string

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "restrict a bundle's rows with a SQL predicate and commit",
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
			if err := builder.Filter(expr, parseParams(params)...); err != nil {
				return err
			}

			committed, err := builder.Commit(ctx, author, message)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "filtered %s\n", committed.RootURL())
			return nil
		},
	}

	cmd.Flags().StringVar(&expr, "expr", "", `SQL predicate using $1, $2, ... placeholders (required)`)
	cmd.Flags().StringVar(&params, "params", "", "comma-separated predicate parameter values")
	cmd.Flags().StringVar(&author, "author", "", "commit author (required)")
	cmd.Flags().StringVar(&message, "message", "", "commit message (required)")
	cmd.MarkFlagRequired("expr")
	cmd.MarkFlagRequired("author")
	cmd.MarkFlagRequired("message")
	return cmd
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newCreateCmd commits an empty initial version carrying just a name/
// description, the usual first commit against a brand new root before any
// block is attached.
func newCreateCmd() *cobra.Command {
	var name, description, author, message string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "initialize a new bundle root with a name and description",
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
			if err := builder.SetName(name); err != nil {
				return err
			}
			if description != "" {
				if err := builder.SetDescription(description); err != nil {
					return err
				}
			}

			committed, err := builder.Commit(ctx, author, message)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", committed.RootURL())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "bundle display name (required)")
	cmd.Flags().StringVar(&description, "description", "", "bundle description")
	cmd.Flags().StringVar(&author, "author", "", "commit author (required)")
	cmd.Flags().StringVar(&message, "message", "initial commit", "commit message")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("author")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "list a bundle's committed versions, newest first",
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

			b, err := e.openBundle(ctx, root)
			if err != nil {
				return err
			}

			headers, err := b.History(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tHASH\tAUTHOR\tCREATED\tMESSAGE")
			for _, h := range headers {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", h.Version, h.Hash, h.Author, h.CreatedAt, h.Message)
			}
			return w.Flush()
		},
	}
}

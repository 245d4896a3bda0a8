package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"bundlebase.dev/bundlebase/internal/bundle"
	"bundlebase.dev/bundlebase/internal/query"
	"bundlebase.dev/bundlebase/internal/view"
)

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "manage named views",
	}
	cmd.AddCommand(newViewAttachCmd())
	return cmd
}

func newViewAttachCmd() *cobra.Command {
	var name, source, adapterHint, filterExpr, filterParams, author, message string

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "build a named view as a derived, read-only bundle subtree and register it on the parent",
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

			parent, err := e.openBundle(ctx, root)
			if err != nil {
				return err
			}

			deps := bundle.Dependencies{
				Engine:   query.NewEngine(e.cfg.Query),
				Manifest: e.manifestDeps(),
			}

			define := func(ctx context.Context, b *bundle.Builder) error {
				if err := b.AttachBlock(ctx, source, adapterHint); err != nil {
					return err
				}
				if filterExpr != "" {
					return b.Filter(filterExpr, parseParams(filterParams)...)
				}
				return nil
			}

			v, updatedParent, err := view.Attach(ctx, parent, deps, name, author, message, define)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "attached view %q at %s, parent now at %s\n", name, v.RootURL(), updatedParent.RootURL())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "view name (required)")
	cmd.Flags().StringVar(&source, "source", "", "source URL or path the view attaches (required)")
	cmd.Flags().StringVar(&adapterHint, "adapter-hint", "", "adapter hint for --source")
	cmd.Flags().StringVar(&filterExpr, "filter", "", "optional SQL predicate restricting the view's rows")
	cmd.Flags().StringVar(&filterParams, "filter-params", "", "comma-separated params for --filter")
	cmd.Flags().StringVar(&author, "author", "", "commit author (required)")
	cmd.Flags().StringVar(&message, "message", "", "commit message (required)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("author")
	cmd.MarkFlagRequired("message")
	return cmd
}

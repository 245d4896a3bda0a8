package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bundlebase.dev/bundlebase/internal/planexec"
)

// newCommitCmd records one or more operations against a bundle and commits
// them as a single version. It opens the bundle at --root, applies every
// requested operation in a fixed order (attach, join, attach-to-join,
// filter, select, remove-columns, rename, set-name, set-description), then
// flushes them as one manifest version — mirroring how BundleBuilder
// batches operations into a single commit.
func newCommitCmd() *cobra.Command {
	var (
		attach        []string
		join          []string
		attachToJoin  []string
		filter        []string
		filterParams  []string
		selectExpr    string
		removeColumns string
		rename        string
		setName       string
		setDesc       string
		author        string
		message       string
	)

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "record one or more operations against a bundle and commit them as a single version",
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

			for _, spec := range attach {
				source, hint := splitPair(spec, ":")
				if err := builder.AttachBlock(ctx, source, hint); err != nil {
					return err
				}
			}

			for _, spec := range join {
				name, otherURL, predicate, how, err := parseJoinSpec(spec)
				if err != nil {
					return err
				}
				if err := builder.Join(ctx, name, otherURL, predicate, how); err != nil {
					return err
				}
			}

			for _, spec := range attachToJoin {
				name, sourceURL := splitPair(spec, ":")
				if err := builder.AttachToJoin(ctx, name, sourceURL); err != nil {
					return err
				}
			}

			for i, expr := range filter {
				var params []interface{}
				if i < len(filterParams) {
					params = parseParams(filterParams[i])
				}
				if err := builder.Filter(expr, params...); err != nil {
					return err
				}
			}

			if selectExpr != "" {
				if err := builder.Select(selectExpr); err != nil {
					return err
				}
			}

			if removeColumns != "" {
				names := strings.Split(removeColumns, ",")
				for i := range names {
					names[i] = strings.TrimSpace(names[i])
				}
				if err := builder.RemoveColumns(names...); err != nil {
					return err
				}
			}

			if rename != "" {
				from, to := splitPair(rename, ":")
				if err := builder.RenameColumn(from, to); err != nil {
					return err
				}
			}

			if setName != "" {
				if err := builder.SetName(setName); err != nil {
					return err
				}
			}

			if setDesc != "" {
				if err := builder.SetDescription(setDesc); err != nil {
					return err
				}
			}

			if len(builder.Status()) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to commit")
				return nil
			}

			opCount := len(builder.Status())
			committed, err := builder.Commit(ctx, author, message)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "committed %s (%d operation(s))\n", committed.RootURL(), opCount)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&attach, "attach", nil, `attach a block, "sourceURL[:adapterHint]" (repeatable)`)
	cmd.Flags().StringArrayVar(&join, "join", nil, `join a source, "name:sourceURL:predicate:kind" (repeatable, kind one of inner/left/right/full)`)
	cmd.Flags().StringArrayVar(&attachToJoin, "attach-to-join", nil, `attach another source into an existing join, "name:sourceURL" (repeatable)`)
	cmd.Flags().StringArrayVar(&filter, "filter", nil, "restrict rows with a SQL predicate using $1, $2, ... placeholders (repeatable)")
	cmd.Flags().StringArrayVar(&filterParams, "filter-params", nil, "comma-separated params for the filter at the same position (repeatable)")
	cmd.Flags().StringVar(&selectExpr, "select", "", "project columns or a column list with AS aliases")
	cmd.Flags().StringVar(&removeColumns, "remove-columns", "", "comma-separated column names to drop")
	cmd.Flags().StringVar(&rename, "rename", "", `rename one column, "from:to"`)
	cmd.Flags().StringVar(&setName, "set-name", "", "set the bundle's display name")
	cmd.Flags().StringVar(&setDesc, "set-description", "", "set the bundle's description")
	cmd.Flags().StringVar(&author, "author", "", "commit author (required)")
	cmd.Flags().StringVar(&message, "message", "", "commit message (required)")
	cmd.MarkFlagRequired("author")
	cmd.MarkFlagRequired("message")
	return cmd
}

func splitPair(s, sep string) (string, string) {
	idx := strings.Index(s, sep)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}

func parseJoinSpec(spec string) (name, otherURL, predicate string, how planexec.JoinKind, err error) {
	parts := strings.SplitN(spec, ":", 4)
	if len(parts) != 4 {
		return "", "", "", 0, fmt.Errorf("invalid --join spec %q, want name:sourceURL:predicate:kind", spec)
	}
	how, err = parseJoinKind(parts[3])
	if err != nil {
		return "", "", "", 0, err
	}
	return parts[0], parts[1], parts[2], how, nil
}

func parseJoinKind(s string) (planexec.JoinKind, error) {
	switch strings.ToLower(s) {
	case "inner", "":
		return planexec.JoinInner, nil
	case "left":
		return planexec.JoinLeft, nil
	case "right":
		return planexec.JoinRight, nil
	case "full":
		return planexec.JoinFull, nil
	default:
		return 0, fmt.Errorf("unknown join kind %q, want inner/left/right/full", s)
	}
}

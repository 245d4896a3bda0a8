// Package view implements named views (C9): derived, read-only bundles
// rooted as subtrees of their parent (`_manifest/view_{id}/`), built and
// committed like any other bundle, then registered onto the parent
// through its own AttachView operation.
package view

import (
	"context"
	"strings"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/bundle"
	"bundlebase.dev/bundlebase/internal/manifest"
	"bundlebase.dev/bundlebase/internal/types"
)

// Define builds a view's own bundle content against its dedicated
// Builder — attach blocks, filter, select, exactly as any other bundle.
// It must not itself attach a further view: views-of-views are
// unsupported (§4.9).
type Define func(ctx context.Context, b *bundle.Builder) error

// Attach creates name as parent's view: a fresh bundle built by define,
// committed under its own subtree rooted at
// {parent.RootURL()}/_manifest/view_{id}/, then registered onto parent
// via an AttachView operation committed in parent's own history. Returns
// the newly committed view Bundle and the updated parent Bundle.
func Attach(ctx context.Context, parent *bundle.Bundle, deps bundle.Dependencies, name, author, message string, define Define) (view, updatedParent *bundle.Bundle, err error) {
	if IsView(parent.RootURL()) {
		return nil, nil, bberr.Newf("view.Attach", bberr.Validation, "views of views are unsupported: %q is already a view", parent.RootURL())
	}

	viewID := types.NewObjectId()
	viewRoot := RootURL(parent.RootURL(), viewID)

	viewBuilder := parent.Extend(viewRoot)
	if err := define(ctx, viewBuilder); err != nil {
		return nil, nil, err
	}
	view, err = viewBuilder.Commit(ctx, author, message)
	if err != nil {
		return nil, nil, err
	}

	parentBuilder := parent.Extend(parent.RootURL())
	if err := parentBuilder.AttachView(name, viewID); err != nil {
		return nil, nil, err
	}
	updatedParent, err = parentBuilder.Commit(ctx, author, message)
	if err != nil {
		return nil, nil, err
	}

	return view, updatedParent, nil
}

// RootURL derives the bundle root a view with the given id lives at,
// relative to its parent's own root.
func RootURL(parentRootURL string, viewID types.ObjectId) string {
	return strings.TrimSuffix(parentRootURL, "/") + "/" + strings.TrimSuffix(manifest.ViewRoot(string(viewID)), "/")
}

// IsView reports whether rootURL already names a view subtree, used to
// reject views-of-views before any work is committed.
func IsView(rootURL string) bool {
	return strings.Contains(rootURL, "_manifest/view_")
}

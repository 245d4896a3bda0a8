package manifest

import (
	"strings"

	"bundlebase.dev/bundlebase/internal/objstore"
)

// DefaultResolver maps a bundle root URL to a local-filesystem BlobStore
// rooted at its path, accepting both a bare path and an explicit
// "file://" scheme. Object-store roots are resolved by a caller-supplied
// RootResolver built over objstore.NewS3Store instead (cmd/bbctl wires
// that up from config.ObjectStoreConfig when a root uses "s3://").
func DefaultResolver(rootURL string) (objstore.BlobStore, error) {
	path := strings.TrimPrefix(rootURL, "file://")
	return objstore.NewFileStore(path), nil
}

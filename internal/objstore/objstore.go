// Package objstore provides the byte-level get/put/list primitives the
// manifest store and block backends read and write through. It does not
// know about manifests, columns, or blocks — only bytes at keys under a
// root URL.
package objstore

import (
	"context"
	"io"
)

// ObjectInfo describes one stored object's key and size, as returned by List.
type ObjectInfo struct {
	Key  string
	Size int64
}

// BlobStore is the byte-level storage contract consumed by the manifest
// store (C1) and block backends. It abstracts over local filesystem and
// S3-compatible object storage so the rest of the core never branches on
// root URL scheme beyond choosing which BlobStore to construct.
type BlobStore interface {
	// Get reads the full contents of key. Returns a *NotFoundError when
	// the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes data to key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// PutAtomic writes data to key such that concurrent readers never
	// observe a partial write: write to a temp sibling, then rename/copy
	// into place.
	PutAtomic(ctx context.Context, key string, data []byte) error

	// List enumerates objects whose key has the given prefix. FileStore lists
	// one directory level; S3Store returns every key under the prefix,
	// nested ones included (the manifest store is responsible for excluding
	// view_* subtrees itself — see internal/manifest).
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Reader opens a streaming reader over key's contents, for adapters
	// that scan large blocks without loading them fully into memory.
	Reader(ctx context.Context, key string) (io.ReadCloser, error)
}

// NotFoundError marks a missing key in any BlobStore implementation.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string { return "object not found: " + e.Key }

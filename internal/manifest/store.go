package manifest

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/objstore"
)

const manifestPrefix = "_manifest/"

var commitFileName = regexp.MustCompile(`^(\d{5})([0-9a-f]{12})\.yaml$`)

// CommitRef identifies one on-disk commit file.
type CommitRef struct {
	Version uint64
	Hash    string
	Path    string
}

// CommitHeader is the history-facing summary of one commit.
type CommitHeader struct {
	Version   uint64
	Hash      string
	CreatedAt string
	Author    string
	Message   string
}

// Store reads and writes manifests for one bundle root against a
// BlobStore. The root's key layout ("_manifest/{version:05d}{hash}.yaml",
// "_manifest/view_{id}/...") is fixed by spec, independent of the
// underlying blob backend (local filesystem or object store).
type Store struct {
	blobs objstore.BlobStore
}

// New wraps blobs as a manifest Store.
func New(blobs objstore.BlobStore) *Store {
	return &Store{blobs: blobs}
}

// Write serializes manifest, computes its content hash over the
// serialized body (with Hash cleared), and writes it atomically to
// {root}/_manifest/{version:05d}{hash}.yaml. It returns the written key.
func (s *Store) Write(ctx context.Context, m *Manifest) (string, error) {
	hash, err := computeHash(*m)
	if err != nil {
		return "", bberr.New("manifest.Write", bberr.IO, err)
	}
	m.Hash = hash

	raw, err := yaml.Marshal(m)
	if err != nil {
		return "", bberr.New("manifest.Write", bberr.IO, err)
	}

	key := manifestPrefix + fileName(m.Version, hash)
	if err := s.blobs.PutAtomic(ctx, key, raw); err != nil {
		return "", bberr.New("manifest.Write", bberr.IO, err).WithContext("key", key)
	}
	return key, nil
}

// List enumerates commit files directly under _manifest/, oldest first.
// It skips every key nested below _manifest/ (some BlobStores, such as
// S3Store, return nested keys), so a view_*/ subtree's commits are never
// listed here — they are independent bundles, not commits of this one.
func (s *Store) List(ctx context.Context) ([]CommitRef, error) {
	infos, err := s.blobs.List(ctx, manifestPrefix)
	if err != nil {
		return nil, bberr.New("manifest.List", bberr.IO, err)
	}

	var refs []CommitRef
	for _, info := range infos {
		name := strings.TrimPrefix(info.Key, manifestPrefix)
		if strings.Contains(name, "/") {
			continue // a view_*/ subtree entry, or any other nested key
		}
		match := commitFileName.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		version, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			continue
		}
		refs = append(refs, CommitRef{Version: version, Hash: match[2], Path: info.Key})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Version < refs[j].Version })
	return refs, nil
}

// Read loads and decodes the manifest at key.
func (s *Store) Read(ctx context.Context, key string) (*Manifest, error) {
	raw, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, bberr.New("manifest.Read", bberr.IO, err).WithContext("key", key)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, bberr.New("manifest.Read", bberr.UnknownOperation, err).WithContext("key", key)
	}
	return &m, nil
}

// Latest returns the highest-version commit, or ok=false for an empty
// (not-yet-committed) bundle root.
func (s *Store) Latest(ctx context.Context) (CommitRef, bool, error) {
	refs, err := s.List(ctx)
	if err != nil {
		return CommitRef{}, false, err
	}
	if len(refs) == 0 {
		return CommitRef{}, false, nil
	}
	return refs[len(refs)-1], true, nil
}

// History returns {version, hash, created_at, author, message} for every
// commit directly under this root, newest first. Walking the full from
// chain (this bundle's parent's history, recursively) is the caller's
// responsibility (internal/bundle), since that requires resolving the
// parent root's own Store.
func (s *Store) History(ctx context.Context) ([]CommitHeader, error) {
	refs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	headers := make([]CommitHeader, 0, len(refs))
	for i := len(refs) - 1; i >= 0; i-- {
		m, err := s.Read(ctx, refs[i].Path)
		if err != nil {
			return nil, err
		}
		headers = append(headers, CommitHeader{
			Version:   m.Version,
			Hash:      m.Hash,
			CreatedAt: m.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Author:    m.Author,
			Message:   m.Message,
		})
	}
	return headers, nil
}

// ViewRoot returns the key prefix for view_id's bundle subtree, rooted
// under this store's root.
func ViewRoot(viewID string) string {
	return fmt.Sprintf("%sview_%s/", manifestPrefix, viewID)
}

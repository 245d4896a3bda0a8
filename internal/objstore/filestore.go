package objstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// FileStore is a BlobStore backed by the local filesystem, rooted at a
// base directory. Keys are relative paths under that root.
type FileStore struct {
	root string
}

// NewFileStore creates a FileStore rooted at root. The directory is
// created on first write if it does not already exist.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (fs *FileStore) path(key string) string {
	return filepath.Join(fs.root, filepath.FromSlash(key))
}

func (fs *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(fs.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Key: key}
		}
		return nil, err
	}
	return data, nil
}

func (fs *FileStore) Put(_ context.Context, key string, data []byte) error {
	p := fs.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// PutAtomic writes to a temp sibling in the same directory, then renames
// it into place, so readers never observe a partial file under the final
// name — the property the manifest store's commit protocol depends on.
func (fs *FileStore) PutAtomic(_ context.Context, key string, data []byte) error {
	p := fs.path(key)
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := filepath.Join(dir, "."+filepath.Base(p)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (fs *FileStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	dir := fs.path(prefix)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []ObjectInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		key := strings.TrimPrefix(filepath.ToSlash(filepath.Join(prefix, e.Name())), "/")
		out = append(out, ObjectInfo{Key: key, Size: info.Size()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (fs *FileStore) Reader(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(fs.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Key: key}
		}
		return nil, err
	}
	return f, nil
}

var _ BlobStore = (*FileStore)(nil)

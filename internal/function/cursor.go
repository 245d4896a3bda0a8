package function

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"bundlebase.dev/bundlebase/internal/bberr"
)

// cursorBucket holds one key per function name (the bundle root is not part
// of the key), mapping it to the last page successfully served. This is purely a crash-resume
// convenience: next(page) is explicit and idempotent, so losing this store
// only costs re-fetching already-seen pages, never correctness.
var cursorBucket = []byte("function_cursors")

// cursorStore persists last-served pages to a bbolt database, in its own
// bucket.
type cursorStore struct {
	db *bolt.DB
}

func openCursorStore(path string) (*cursorStore, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, bberr.New("function.openCursorStore", bberr.IO, err).WithContext("path", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cursorBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, bberr.New("function.openCursorStore", bberr.IO, err).WithContext("path", path)
	}
	return &cursorStore{db: db}, nil
}

func cursorKey(name string) []byte {
	return []byte(fmt.Sprintf("fn\x00%s", name))
}

func (c *cursorStore) save(name string, page uint64) {
	_ = c.db.Update(func(tx *bolt.Tx) error {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, page)
		return tx.Bucket(cursorBucket).Put(cursorKey(name), buf)
	})
}

func (c *cursorStore) load(name string) (uint64, bool) {
	var page uint64
	var found bool
	_ = c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(cursorBucket).Get(cursorKey(name))
		if v == nil {
			return nil
		}
		page = binary.LittleEndian.Uint64(v)
		found = true
		return nil
	})
	return page, found
}

func (c *cursorStore) Close() error {
	return c.db.Close()
}

// WithCursorStore opens (creating if necessary) a bbolt database at path
// and attaches it to r for crash-resume page tracking. bbolt locks the file
// while it is open, so opening a path that another handle holds (such as an
// open bbolt index cache) waits until that handle is closed.
func WithCursorStore(r *Registry, path string) error {
	store, err := openCursorStore(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.cursors = store
	r.mu.Unlock()
	return nil
}

package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	bolt "go.etcd.io/bbolt"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/config"
)

// cacheKey builds the lookup's cache key per §4.6:
// "{index_path}#{column}#{hash(predicate)}".
func cacheKey(indexPath, column string, predicate []byte) string {
	sum := sha256.Sum256(predicate)
	return fmt.Sprintf("%s#%s#%s", indexPath, column, hex.EncodeToString(sum[:8]))
}

// Cache stores raw lookup row-id results keyed by cacheKey, sparing a
// repeated predicate from re-decoding or re-walking an index file.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Close() error
}

// memoryCache is an in-process LRU, the default tier (§4.6 "default
// capacity 100 entries").
type memoryCache struct {
	lru *lru.Cache[string, []byte]
}

func newMemoryCache(capacity int) (*memoryCache, error) {
	if capacity <= 0 {
		capacity = 100
	}
	c, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, bberr.New("index.newMemoryCache", bberr.Validation, err)
	}
	return &memoryCache{lru: c}, nil
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return m.lru.Get(key)
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte) {
	m.lru.Add(key, value)
}

func (m *memoryCache) Close() error { return nil }

// redisCache shares lookup results across processes behind a single
// store; tests substitute miniredis for the real server.
type redisCache struct {
	client *redis.Client
}

func newRedisCache(addr string) *redisCache {
	return &redisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	v, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte) {
	_ = r.client.Set(ctx, key, value, 0).Err()
}

func (r *redisCache) Close() error {
	return r.client.Close()
}

// bboltCache is the durable, single-node tier, kept in its own bucket of
// the bbolt file at cfg.BboltPath.
type bboltCache struct {
	db *bolt.DB
}

var cacheBucket = []byte("index_lookup_cache")

func newBboltCache(path string) (*bboltCache, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, bberr.New("index.newBboltCache", bberr.IO, err).WithContext("path", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, bberr.New("index.newBboltCache", bberr.IO, err).WithContext("path", path)
	}
	return &bboltCache{db: db}, nil
}

func (b *bboltCache) Get(_ context.Context, key string) ([]byte, bool) {
	var out []byte
	_ = b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(cacheBucket).Get([]byte(key))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, out != nil
}

func (b *bboltCache) Set(_ context.Context, key string, value []byte) {
	_ = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(key), value)
	})
}

func (b *bboltCache) Close() error { return b.db.Close() }

// NewCache builds the configured cache tier (§4.6: memory, redis, or bbolt).
func NewCache(cfg config.IndexCacheConfig) (Cache, error) {
	switch cfg.Backend {
	case config.IndexCacheRedis:
		return newRedisCache(cfg.RedisAddr), nil
	case config.IndexCacheBbolt:
		return newBboltCache(cfg.BboltPath)
	default:
		return newMemoryCache(cfg.Capacity)
	}
}

// Package memcachestore is a jus.Cache backed by memcached. Memcached has
// no persistence guarantee and no way to enumerate keys, so Clear is
// intentionally unsupported here: a production deployment using this
// backend relies on the memcached server's own eviction/expiry.
package memcachestore

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/gitter-badger/jus"
)

// Cache is a jus.Cache implementation storing entries in memcached.
type Cache struct {
	client *memcache.Client
}

// New returns a Cache using the given memcached server(s) with equal
// weight.
func New(servers ...string) *Cache {
	return &Cache{client: memcache.New(servers...)}
}

// NewWithClient wraps an already-configured memcache.Client.
func NewWithClient(client *memcache.Client) *Cache {
	return &Cache{client: client}
}

// cacheKey hashes key into memcached's legal key alphabet. The engine's
// default cache keys are "METHOD URL" (e.g. "GET http://example.test/a"),
// which contains a space and can exceed memcached's 250-byte limit;
// memcache.Client rejects both with ErrMalformedKey.
func cacheKey(key string) string {
	h := md5.New()
	io.WriteString(h, key)
	return "jus:" + hex.EncodeToString(h.Sum(nil))
}

// Initialize is a no-op: the memcache client dials lazily per request.
func (c *Cache) Initialize() error { return nil }

// Get returns the decoded entry for key, or ok=false if absent or corrupt.
func (c *Cache) Get(key string) (*jus.Entry, bool) {
	item, err := c.client.Get(cacheKey(key))
	if err != nil {
		return nil, false
	}
	_, entry, err := jus.DecodeEntry(item.Value)
	if err != nil {
		c.Remove(key)
		return nil, false
	}
	return entry, true
}

// Put stores entry under key.
func (c *Cache) Put(key string, entry *jus.Entry) error {
	data, err := jus.EncodeEntry(key, entry)
	if err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{Key: cacheKey(key), Value: data})
}

// Invalidate loads the entry, forces its TTLs into the past, and rewrites
// it. A miss is a silent no-op.
func (c *Cache) Invalidate(key string, fullExpire bool) {
	entry, ok := c.Get(key)
	if !ok {
		return
	}
	jus.InvalidateEntry(entry, fullExpire)
	_ = c.Put(key, entry)
}

// Remove deletes the entry for key.
func (c *Cache) Remove(key string) {
	_ = c.client.Delete(cacheKey(key))
}

// Clear is unsupported: memcached exposes no way to enumerate this
// cache's keys short of a server-wide FLUSH_ALL, which would also evict
// unrelated callers sharing the same server.
func (c *Cache) Clear() error {
	return errors.New("memcachestore: Clear is unsupported, rely on memcached TTL/eviction")
}

// Package diskvstore is a jus.Cache backed by diskv: a flat-file store
// keyed by an MD5 digest of the cache key, independent of DiskCache's
// btree/list index. Files on disk are not evicted by size.
package diskvstore

import (
	"crypto/md5"
	"encoding/hex"
	"io"

	"github.com/peterbourgon/diskv/v3"

	"github.com/gitter-badger/jus"
)

// Cache is a jus.Cache implementation storing entries via diskv.
type Cache struct {
	d *diskv.Diskv
}

// New returns a Cache storing files under basePath. maxBytes becomes
// diskv's CacheSizeMax, the bound on its in-memory read cache; it does
// not limit the files kept on disk.
func New(basePath string, maxBytes uint64) *Cache {
	return &Cache{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: maxBytes,
		}),
	}
}

// NewWithDiskv wraps an already-configured diskv.Diskv.
func NewWithDiskv(d *diskv.Diskv) *Cache {
	return &Cache{d: d}
}

// Initialize is a no-op: diskv opens its backing directory lazily on
// first access.
func (c *Cache) Initialize() error { return nil }

func keyToFilename(key string) string {
	h := md5.New()
	io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the decoded entry for key, or ok=false if absent or corrupt.
func (c *Cache) Get(key string) (*jus.Entry, bool) {
	data, err := c.d.Read(keyToFilename(key))
	if err != nil {
		return nil, false
	}
	_, entry, err := jus.DecodeEntry(data)
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
	return c.d.Write(keyToFilename(key), data)
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
	_ = c.d.Erase(keyToFilename(key))
}

// Clear deletes every entry this cache ever wrote.
func (c *Cache) Clear() error {
	return c.d.EraseAll()
}

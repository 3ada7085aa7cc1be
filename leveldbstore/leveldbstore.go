// Package leveldbstore is a jus.Cache backed by goleveldb, an embedded
// ordered key-value store.
package leveldbstore

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/gitter-badger/jus"
)

// Cache is a jus.Cache implementation storing entries in a LevelDB.
type Cache struct {
	db   *leveldb.DB
	path string
}

// New returns a Cache that will open path on Initialize.
func New(path string) *Cache {
	return &Cache{path: path}
}

// NewWithDB wraps an already-open LevelDB.
func NewWithDB(db *leveldb.DB) *Cache {
	return &Cache{db: db}
}

// Initialize opens the underlying database if it wasn't provided directly.
func (c *Cache) Initialize() error {
	if c.db != nil {
		return nil
	}
	db, err := leveldb.OpenFile(c.path, nil)
	if err != nil {
		return fmt.Errorf("leveldbstore: open: %w", err)
	}
	c.db = db
	return nil
}

// Get returns the decoded entry for key, or ok=false if absent or corrupt.
func (c *Cache) Get(key string) (*jus.Entry, bool) {
	data, err := c.db.Get([]byte(key), nil)
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
	return c.db.Put([]byte(key), data, nil)
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
	_ = c.db.Delete([]byte(key), nil)
}

// Clear iterates every key this cache holds and deletes it; goleveldb has
// no bulk-drop primitive like Badger's DropAll.
func (c *Cache) Clear() error {
	iter := c.db.NewIterator(nil, nil)
	defer iter.Release()
	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return err
	}
	return c.db.Write(batch, nil)
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

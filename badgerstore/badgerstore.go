// Package badgerstore is a jus.Cache backed by BadgerDB, a single embedded
// key-value store with no external process to run. Entries are encoded
// with jus.EncodeEntry/DecodeEntry so the wire format matches DiskCache.
package badgerstore

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v2"

	"github.com/gitter-badger/jus"
)

// Cache is a jus.Cache implementation storing entries in a BadgerDB.
type Cache struct {
	db   *badger.DB
	path string
}

// New returns a Cache for a BadgerDB at path; the database is opened
// (and created if absent) by Initialize.
func New(path string) (*Cache, error) {
	return &Cache{path: path}, nil
}

// NewWithDB wraps an already-open BadgerDB.
func NewWithDB(db *badger.DB) *Cache {
	return &Cache{db: db}
}

// Initialize opens the underlying database if it wasn't provided directly.
func (c *Cache) Initialize() error {
	if c.db != nil {
		return nil
	}
	db, err := badger.Open(badger.DefaultOptions(c.path).WithLogger(nil))
	if err != nil {
		return fmt.Errorf("badgerstore: open: %w", err)
	}
	c.db = db
	return nil
}

// Get returns the decoded entry for key, or ok=false if absent or corrupt.
func (c *Cache) Get(key string) (*jus.Entry, bool) {
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
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
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
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
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Clear drops every key this cache ever wrote by running a full table
// rebuild via DropAll.
func (c *Cache) Clear() error {
	return c.db.DropAll()
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

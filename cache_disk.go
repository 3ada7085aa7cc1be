package jus

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/btree"
)

// DefaultCacheMaxSizeBytes is the budget used when NewDiskCache is given
// a non-positive maxBytes.
const DefaultCacheMaxSizeBytes = 5 * 1024 * 1024

// DefaultCacheHysteresisFactor is the fraction of maxBytes the cache
// prunes down to once eviction kicks in, so a single Put doesn't trigger
// eviction again on the very next Put.
const DefaultCacheHysteresisFactor = 0.9

// DiskCache is the canonical Cache implementation: one file per entry
// under a root directory, with an in-memory LRU index so most decisions
// (fresh/stale/miss) never touch the filesystem. Eviction candidates are
// tracked two ways: a container/list for O(1) most-recently-used
// promotion (mirroring a textbook LRU), and a google/btree ordered by
// access sequence so "find the least recently used entries" during a
// Put-triggered prune is an O(log n) walk instead of scanning the list
// from the back for every byte that needs to be freed.
type DiskCache struct {
	root       string
	maxBytes   int64
	hysteresis float64

	mu          sync.Mutex
	lru         *list.List
	items       map[string]*list.Element
	index       *btree.BTree
	currentSize int64
	nextSeq     uint64
}

type diskCacheEntry struct {
	key  string
	size int64
	seq  uint64
}

func (e *diskCacheEntry) Less(than btree.Item) bool {
	o := than.(*diskCacheEntry)
	if e.seq != o.seq {
		return e.seq < o.seq
	}
	return e.key < o.key
}

// NewDiskCache creates a disk cache rooted at dir with the given byte
// budget (DefaultCacheMaxSizeBytes if maxBytes <= 0).
func NewDiskCache(dir string, maxBytes int64) *DiskCache {
	if maxBytes <= 0 {
		maxBytes = DefaultCacheMaxSizeBytes
	}
	return &DiskCache{
		root:       dir,
		maxBytes:   maxBytes,
		hysteresis: DefaultCacheHysteresisFactor,
		lru:        list.New(),
		items:      make(map[string]*list.Element),
		index:      btree.New(32),
	}
}

// Initialize scans the root directory, reading and CRC-checking each
// entry file to rebuild the in-memory index; the index keeps only each
// key and its body size, not the body. Files that fail to parse are
// deleted, matching readEntry's documented corruption-drops-the-file
// behavior.
func (c *DiskCache) Initialize() error {
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		path := filepath.Join(c.root, de.Name())
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		key, entry, err := readEntry(f)
		f.Close()
		if err != nil {
			os.Remove(path)
			continue
		}
		c.removeLocked(key)
		c.insertLocked(key, int64(len(entry.Data)))
	}
	return nil
}

func (c *DiskCache) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.root, hex.EncodeToString(sum[:]))
}

// Get loads an entry from disk. A CRC mismatch or any structural read
// error is treated as corruption: the file is removed and Get reports a
// miss, matching the cache format's documented race on crash-during-write.
func (c *DiskCache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	_, tracked := c.items[key]
	c.mu.Unlock()
	if !tracked {
		return nil, false
	}

	path := c.pathFor(key)
	f, err := os.Open(path)
	if err != nil {
		c.mu.Lock()
		c.removeLocked(key)
		c.mu.Unlock()
		return nil, false
	}
	defer f.Close()

	_, entry, err := readEntry(f)
	if err != nil {
		os.Remove(path)
		c.mu.Lock()
		c.removeLocked(key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.touchLocked(key)
	c.mu.Unlock()

	return entry, true
}

// Put writes the entry to disk atomically (temp file + rename) and
// updates the in-memory index, pruning older entries if the cache is now
// over budget.
func (c *DiskCache) Put(key string, entry *Entry) error {
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return err
	}

	path := c.pathFor(key)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := writeEntry(f, key, entry); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}

	c.mu.Lock()
	c.removeLocked(key)
	c.insertLocked(key, int64(len(entry.Data)))
	c.pruneLocked()
	c.mu.Unlock()
	return nil
}

// Invalidate forces revalidation on the next access without discarding
// the cached bytes.
func (c *DiskCache) Invalidate(key string, fullExpire bool) {
	entry, ok := c.Get(key)
	if !ok {
		return
	}
	entry.SoftTTL = time.Time{}.Add(time.Millisecond)
	if fullExpire {
		entry.TTL = entry.SoftTTL
	}
	_ = c.Put(key, entry)
}

// Remove deletes a single cached entry.
func (c *DiskCache) Remove(key string) {
	os.Remove(c.pathFor(key))
	c.mu.Lock()
	c.removeLocked(key)
	c.mu.Unlock()
}

// Clear deletes every cached entry.
func (c *DiskCache) Clear() error {
	c.mu.Lock()
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	c.lru = list.New()
	c.items = make(map[string]*list.Element)
	c.index = btree.New(32)
	c.currentSize = 0
	c.mu.Unlock()

	for _, k := range keys {
		os.Remove(c.pathFor(k))
	}
	return nil
}

// --- internal index management, caller must hold c.mu where noted ---

func (c *DiskCache) insertLocked(key string, size int64) {
	c.nextSeq++
	seq := c.nextSeq
	ce := &diskCacheEntry{key: key, size: size, seq: seq}
	el := c.lru.PushFront(ce)
	c.items[key] = el
	c.index.ReplaceOrInsert(ce)
	c.currentSize += size
}

func (c *DiskCache) touchLocked(key string) {
	el, ok := c.items[key]
	if !ok {
		return
	}
	old := el.Value.(*diskCacheEntry)
	c.index.Delete(old)
	c.lru.MoveToFront(el)

	c.nextSeq++
	updated := &diskCacheEntry{key: old.key, size: old.size, seq: c.nextSeq}
	el.Value = updated
	c.index.ReplaceOrInsert(updated)
}

func (c *DiskCache) removeLocked(key string) {
	el, ok := c.items[key]
	if !ok {
		return
	}
	ce := el.Value.(*diskCacheEntry)
	c.lru.Remove(el)
	delete(c.items, key)
	c.index.Delete(ce)
	c.currentSize -= ce.size
}

// pruneLocked evicts least-recently-used entries (ascending access
// sequence, read off the btree) until the cache is back under the
// hysteresis target. Must be called with c.mu held.
func (c *DiskCache) pruneLocked() {
	target := int64(float64(c.maxBytes) * c.hysteresis)
	for c.currentSize > target {
		min := c.index.Min()
		if min == nil {
			return
		}
		ce := min.(*diskCacheEntry)
		c.lru.Remove(c.items[ce.key])
		delete(c.items, ce.key)
		c.index.Delete(ce)
		c.currentSize -= ce.size
		os.Remove(c.pathFor(ce.key))
	}
}

var _ Cache = (*DiskCache)(nil)

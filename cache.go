package jus

import (
	"net/http"
	"time"
)

// Entry is a single cached HTTP response together with the validators and
// expiry instants needed to decide whether it can still be served, must be
// revalidated, or must be refetched outright.
//
// SoftTTL must never be after TTL: once soft-expired the entry may still
// be served while a background revalidation runs, but once hard-expired
// it must not be served at all without a successful revalidation.
type Entry struct {
	Data            []byte
	ETag            string
	ServerDate      time.Time
	LastModified    time.Time
	TTL             time.Time
	SoftTTL         time.Time
	ResponseHeaders http.Header
}

// IsFresh reports whether the entry may be served without any
// revalidation.
func (e *Entry) IsFresh() bool {
	return time.Now().Before(e.SoftTTL)
}

// IsExpired reports whether the entry is too old to serve even
// optimistically; it must be refetched.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.TTL)
}

// NeedsRevalidation reports whether the entry is soft-expired but not
// hard-expired: usable immediately, but a revalidation should be kicked
// off in the background.
func (e *Entry) NeedsRevalidation() bool {
	now := time.Now()
	return !now.Before(e.SoftTTL) && now.Before(e.TTL)
}

// InvalidateEntry forces entry's SoftTTL into the past so the next Get
// triggers revalidation. If fullExpire is true, TTL is forced into the
// past as well, so the entry can't be served even optimistically. Shared
// by every pluggable backend so they invalidate identically to DiskCache.
func InvalidateEntry(entry *Entry, fullExpire bool) {
	past := time.Now().Add(-time.Second)
	entry.SoftTTL = past
	if fullExpire {
		entry.TTL = past
	}
}

// Cache is the persistent key -> Entry contract shared by the disk
// implementation and every pluggable backend (badgerstore, diskvstore,
// leveldbstore, memcachestore, redisstore).
type Cache interface {
	// Get returns the entry for key, or ok=false if absent or corrupt.
	Get(key string) (entry *Entry, ok bool)
	// Put stores or replaces the entry for key, evicting older entries if
	// the cache is over budget.
	Put(key string, entry *Entry) error
	// Invalidate forces the entry's SoftTTL into the past. If fullExpire
	// is true, TTL is forced into the past as well so the next access
	// cannot be served even optimistically.
	Invalidate(key string, fullExpire bool)
	// Remove deletes a single entry.
	Remove(key string)
	// Clear deletes every entry.
	Clear() error
	// Initialize loads the persisted index (if any) so Get/Put can run
	// without touching the backing store for metadata-only decisions.
	Initialize() error
}

package badgerstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gitter-badger/jus"
)

func TestBadgerStoreRoundTrip(t *testing.T) {
	cache, err := New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := cache.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer cache.Close()

	entry := &jus.Entry{Data: []byte("hello"), TTL: time.Now().Add(time.Minute)}
	if err := cache.Put("k", entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := cache.Get("k")
	if !ok {
		t.Fatalf("expected hit after Put")
	}
	if string(got.Data) != "hello" {
		t.Fatalf("expected data %q, got %q", "hello", got.Data)
	}

	cache.Remove("k")
	if _, ok := cache.Get("k"); ok {
		t.Fatalf("expected miss after Remove")
	}
}

func TestBadgerStoreInvalidate(t *testing.T) {
	cache, err := New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := cache.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer cache.Close()

	entry := &jus.Entry{Data: []byte("v"), TTL: time.Now().Add(time.Minute), SoftTTL: time.Now().Add(time.Minute)}
	if err := cache.Put("k", entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	cache.Invalidate("k", false)
	got, ok := cache.Get("k")
	if !ok {
		t.Fatalf("expected entry to survive a soft invalidate")
	}
	if got.IsFresh() {
		t.Fatalf("expected entry to no longer be fresh after Invalidate")
	}
	if got.IsExpired() {
		t.Fatalf("soft invalidate must not force full expiry")
	}
}

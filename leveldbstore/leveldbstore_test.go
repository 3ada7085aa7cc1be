package leveldbstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gitter-badger/jus"
)

func TestLevelDBStoreRoundTrip(t *testing.T) {
	cache := New(filepath.Join(t.TempDir(), "db"))
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
}

func TestLevelDBStoreClear(t *testing.T) {
	cache := New(filepath.Join(t.TempDir(), "db"))
	if err := cache.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer cache.Close()

	_ = cache.Put("a", &jus.Entry{Data: []byte("1")})
	_ = cache.Put("b", &jus.Entry{Data: []byte("2")})

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected miss for %q after Clear", "a")
	}
}

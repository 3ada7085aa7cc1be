package diskvstore

import (
	"testing"
	"time"

	"github.com/gitter-badger/jus"
)

func TestDiskvStoreRoundTrip(t *testing.T) {
	cache := New(t.TempDir(), 1024*1024)

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

func TestDiskvStoreClear(t *testing.T) {
	cache := New(t.TempDir(), 1024*1024)
	_ = cache.Put("a", &jus.Entry{Data: []byte("1")})
	_ = cache.Put("b", &jus.Entry{Data: []byte("2")})

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected miss for %q after Clear", "a")
	}
	if _, ok := cache.Get("b"); ok {
		t.Fatalf("expected miss for %q after Clear", "b")
	}
}

package redisstore

import (
	"net"
	"testing"
	"time"

	"github.com/gitter-badger/jus"
)

const testAddr = "127.0.0.1:6379"

func requireRedis(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", testAddr, 200*time.Millisecond)
	if err != nil {
		t.Skipf("redis not reachable at %s: %v", testAddr, err)
	}
	conn.Close()
}

func TestRedisStoreRoundTrip(t *testing.T) {
	requireRedis(t)

	cache := New(testAddr)
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

func TestRedisStoreClearUnsupported(t *testing.T) {
	cache := New(testAddr)
	if err := cache.Clear(); err == nil {
		t.Fatalf("expected Clear to report unsupported")
	}
}

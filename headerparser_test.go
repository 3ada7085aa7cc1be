package jus

import (
	"net/http"
	"testing"
	"time"
)

func TestParseCacheHeadersMaxAge(t *testing.T) {
	h := http.Header{}
	h.Set("Cache-Control", "max-age=60")
	h.Set("ETag", `W/"v1"`)
	h.Set("Date", time.Now().UTC().Format(http.TimeFormat))

	resp := &NetworkResponse{StatusCode: 200, Data: []byte("body"), Headers: h}
	entry, ok := ParseCacheHeaders(resp)
	if !ok {
		t.Fatalf("expected cacheable entry")
	}
	if entry.ETag != `W/"v1"` {
		t.Fatalf("unexpected etag %q", entry.ETag)
	}
	if entry.SoftTTL.After(entry.TTL) {
		t.Fatalf("expected SoftTTL <= TTL")
	}
	if time.Until(entry.TTL) < 50*time.Second {
		t.Fatalf("expected ttl roughly 60s out, got %v", time.Until(entry.TTL))
	}
}

func TestParseCacheHeadersNoStore(t *testing.T) {
	h := http.Header{}
	h.Set("Cache-Control", "no-store")
	resp := &NetworkResponse{StatusCode: 200, Headers: h}
	if _, ok := ParseCacheHeaders(resp); ok {
		t.Fatalf("expected no-store to prevent caching")
	}
}

func TestParseCacheHeadersMustRevalidateCollapsesTTL(t *testing.T) {
	h := http.Header{}
	h.Set("Cache-Control", "max-age=120, must-revalidate")
	resp := &NetworkResponse{StatusCode: 200, Headers: h}
	entry, ok := ParseCacheHeaders(resp)
	if !ok {
		t.Fatalf("expected cacheable entry")
	}
	if !entry.SoftTTL.Equal(entry.TTL) {
		t.Fatalf("expected must-revalidate to collapse SoftTTL onto TTL")
	}
}

func TestParseCacheHeadersNoFreshnessInfoUncacheable(t *testing.T) {
	resp := &NetworkResponse{StatusCode: 200, Headers: http.Header{}}
	if _, ok := ParseCacheHeaders(resp); ok {
		t.Fatalf("expected response with no validators or freshness info to be uncacheable")
	}
}

func TestParseCharsetDefault(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "text/plain")
	if got := ParseCharset(h); got != "ISO-8859-1" {
		t.Fatalf("expected default charset, got %q", got)
	}
}

func TestParseCharsetExplicit(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/json; charset=UTF-8")
	if got := ParseCharset(h); got != "UTF-8" {
		t.Fatalf("expected UTF-8, got %q", got)
	}
}

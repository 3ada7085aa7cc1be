package jus

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingDriver struct {
	calls   atomic.Int32
	respond func(req *NetworkRequest) (*NetworkResponse, error)
}

func (d *countingDriver) Perform(ctx context.Context, req *NetworkRequest) (*NetworkResponse, error) {
	d.calls.Add(1)
	return d.respond(req)
}

func newTestQueue(t *testing.T, driver Driver, cfg QueueConfig) *RequestQueue {
	t.Helper()
	cache := NewDiskCache(t.TempDir(), 0)
	network := NewNetwork(driver, nil)
	delivery := NewResponseDelivery(ImmediateExecutor)
	q := NewRequestQueue(cache, network, delivery, cfg)
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(q.Stop)
	return q
}

func TestQueueFreshCacheHitMakesNoTransportCall(t *testing.T) {
	driver := &countingDriver{respond: func(req *NetworkRequest) (*NetworkResponse, error) {
		return &NetworkResponse{StatusCode: 200, Data: []byte("network")}, nil
	}}
	cache := NewDiskCache(t.TempDir(), 0)
	cache.Put("GET http://example.test/a", &Entry{
		Data:    []byte("cached"),
		TTL:     time.Now().Add(time.Minute),
		SoftTTL: time.Now().Add(time.Minute),
	})
	network := NewNetwork(driver, nil)
	delivery := NewResponseDelivery(ImmediateExecutor)
	q := NewRequestQueue(cache, network, delivery, QueueConfig{})
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer q.Stop()

	var got string
	done := make(chan struct{})
	req := NewRequest("GET", "http://example.test/a", jsonDecode).Listen(
		func(v string) { got = v; close(done) },
		func(error) { close(done) },
	)
	if err := q.Add(req); err != nil {
		t.Fatalf("add: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for delivery")
	}

	if got != "cached" {
		t.Fatalf("expected cached body, got %q", got)
	}
	if driver.calls.Load() != 0 {
		t.Fatalf("expected zero transport calls for a fresh cache hit, got %d", driver.calls.Load())
	}
}

func TestQueueCoalescesDuplicateCacheableRequests(t *testing.T) {
	driver := &countingDriver{respond: func(req *NetworkRequest) (*NetworkResponse, error) {
		time.Sleep(20 * time.Millisecond)
		return &NetworkResponse{StatusCode: 200, Data: []byte("shared"), Headers: http.Header{"Cache-Control": []string{"max-age=60"}}}, nil
	}}
	q := newTestQueue(t, driver, QueueConfig{})

	const n = 3
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		idx := i
		req := NewRequest("GET", "http://example.test/shared", jsonDecode).Listen(
			func(v string) { results[idx] = v; wg.Done() },
			func(error) { wg.Done() },
		)
		if err := q.Add(req); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	wg.Wait()

	if driver.calls.Load() != 1 {
		t.Fatalf("expected exactly one transport call for coalesced requests, got %d", driver.calls.Load())
	}
	for i, r := range results {
		if r != "shared" {
			t.Fatalf("result %d not delivered correctly, got %q", i, r)
		}
	}
}

func TestQueuePriorityOrderingWithSingleWorker(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var order []string
	var mu sync.Mutex

	driver := &countingDriver{respond: func(req *NetworkRequest) (*NetworkResponse, error) {
		mu.Lock()
		first := len(order) == 0
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		mu.Lock()
		order = append(order, req.URL)
		mu.Unlock()
		return &NetworkResponse{StatusCode: 200, Data: []byte("ok")}, nil
	}}

	q := newTestQueue(t, driver, QueueConfig{NetworkThreadPoolSize: 1})

	blocker := NewRequest("GET", "http://example.test/blocker", jsonDecode).
		WithCacheable(false).
		Listen(func(string) {}, func(error) {})
	if err := q.Add(blocker); err != nil {
		t.Fatalf("add blocker: %v", err)
	}
	<-started

	var wg sync.WaitGroup
	wg.Add(2)
	low := NewRequest("GET", "http://example.test/low", jsonDecode).
		WithCacheable(false).WithPriority(PriorityLow).
		Listen(func(string) { wg.Done() }, func(error) { wg.Done() })
	immediate := NewRequest("GET", "http://example.test/immediate", jsonDecode).
		WithCacheable(false).WithPriority(PriorityImmediate).
		Listen(func(string) { wg.Done() }, func(error) { wg.Done() })

	if err := q.Add(low); err != nil {
		t.Fatalf("add low: %v", err)
	}
	if err := q.Add(immediate); err != nil {
		t.Fatalf("add immediate: %v", err)
	}

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("expected 3 dispatched requests, got %d: %v", len(order), order)
	}
	if order[1] != "http://example.test/immediate" || order[2] != "http://example.test/low" {
		t.Fatalf("expected immediate before low once the worker freed up, got order %v", order)
	}
}

func TestQueueCanceledRequestSuppressesDelivery(t *testing.T) {
	driver := &countingDriver{respond: func(req *NetworkRequest) (*NetworkResponse, error) {
		return &NetworkResponse{StatusCode: 200, Data: []byte("ok")}, nil
	}}
	q := newTestQueue(t, driver, QueueConfig{})

	var delivered atomic.Bool
	req := NewRequest("GET", "http://example.test/cancel-me", jsonDecode).
		WithCacheable(false).WithTag("group-a").
		Listen(func(string) { delivered.Store(true) }, func(error) { delivered.Store(true) })
	req.Cancel()

	if err := q.Add(req); err != nil {
		t.Fatalf("add: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if delivered.Load() {
		t.Fatalf("canceled request should not have delivered a success")
	}
	if driver.calls.Load() != 0 {
		t.Fatalf("canceled request should never reach the transport, got %d calls", driver.calls.Load())
	}
}

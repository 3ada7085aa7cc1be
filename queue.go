package jus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gitter-badger/jus/internal/applog"
	"github.com/gitter-badger/jus/internal/metrics"
)

// QueueConfig carries the tunables for a RequestQueue: how many
// NetworkDispatcher goroutines serve the network queue, and an optional
// cap on how many requests may be admitted at once. Concurrency is a
// fixed worker-pool size rather than a semaphore; the admission cap is
// optional and zero means unbounded.
type QueueConfig struct {
	// NetworkThreadPoolSize is the number of NetworkDispatcher goroutines.
	// Defaults to 4 if <= 0.
	NetworkThreadPoolSize int
	// MaxQueueDepth caps the number of requests the queue will hold at
	// once (including in-flight ones). Zero means unbounded. Add returns
	// ErrQueueFull once this is reached.
	MaxQueueDepth int
}

// DefaultNetworkThreadPoolSize matches the reference implementation's
// default worker count.
const DefaultNetworkThreadPoolSize = 4

// RequestQueue is the entry point for submitting work: it assigns
// sequence numbers, coalesces duplicate in-flight cacheable requests,
// and owns the cache dispatcher plus the network dispatcher pool.
type RequestQueue struct {
	cfg      QueueConfig
	cache    Cache
	network  *Network
	delivery *ResponseDelivery

	sequence atomic.Uint64

	mu              sync.Mutex
	currentRequests map[Requester]struct{}
	waiters         map[string][]Requester

	cacheQueue   *blockingPriorityQueue
	networkQueue *blockingPriorityQueue

	cacheDispatcher    *CacheDispatcher
	networkDispatchers []*NetworkDispatcher

	ctx    context.Context
	cancel context.CancelFunc
	started bool
}

// NewRequestQueue builds a queue around the given cache, network façade,
// and delivery gate. Call Start before Add; call Stop to shut the
// dispatchers down.
func NewRequestQueue(cache Cache, network *Network, delivery *ResponseDelivery, cfg QueueConfig) *RequestQueue {
	if cfg.NetworkThreadPoolSize <= 0 {
		cfg.NetworkThreadPoolSize = DefaultNetworkThreadPoolSize
	}
	return &RequestQueue{
		cfg:             cfg,
		cache:           cache,
		network:         network,
		delivery:        delivery,
		currentRequests: make(map[Requester]struct{}),
		waiters:         make(map[string][]Requester),
		cacheQueue:      newBlockingPriorityQueue(),
		networkQueue:    newBlockingPriorityQueue(),
	}
}

// Start calls the cache's Initialize and launches the cache dispatcher
// and the network dispatcher pool. A second Start on a running queue is a
// no-op.
func (q *RequestQueue) Start() error {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return nil
	}
	q.started = true
	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.mu.Unlock()

	if err := q.cache.Initialize(); err != nil {
		return err
	}

	q.cacheDispatcher = newCacheDispatcher(q.cacheQueue, q.networkQueue, q.cache, q.delivery)
	go q.cacheDispatcher.run()

	q.networkDispatchers = make([]*NetworkDispatcher, q.cfg.NetworkThreadPoolSize)
	for i := range q.networkDispatchers {
		nd := newNetworkDispatcher(q.ctx, q.networkQueue, q.network, q.cache, q.delivery)
		q.networkDispatchers[i] = nd
		go nd.run()
	}
	return nil
}

// Stop cancels in-flight network attempts' context, stops both queues,
// and waits for every dispatcher goroutine to exit.
func (q *RequestQueue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	cancel := q.cancel
	q.mu.Unlock()

	cancel()
	q.cacheQueue.Stop()
	q.networkQueue.Stop()

	<-q.cacheDispatcher.done
	for _, nd := range q.networkDispatchers {
		<-nd.done
	}
}

// Cache exposes the queue's underlying cache, e.g. for manual
// invalidation from outside the request lifecycle.
func (q *RequestQueue) Cache() Cache { return q.cache }

// Add admits req: it assigns a sequence number, wires the finish
// callback, and routes the request either straight to the network queue
// (non-cacheable) or through the cache queue, coalescing it with any
// other in-flight request for the same cache key.
func (q *RequestQueue) Add(req Requester) error {
	q.mu.Lock()
	if q.cfg.MaxQueueDepth > 0 && len(q.currentRequests) >= q.cfg.MaxQueueDepth {
		q.mu.Unlock()
		metrics.QueueRejectedInc()
		return ErrQueueFull
	}

	seq := q.sequence.Add(1)
	req.SetSequence(seq)
	req.attachFinisher(q.finish)
	q.currentRequests[req] = struct{}{}

	if req.ShouldCache() {
		cacheKey := req.CacheKey()
		if waiters, primaryInFlight := q.waiters[cacheKey]; primaryInFlight {
			q.waiters[cacheKey] = append(waiters, req)
			q.mu.Unlock()
			applog.LogRequestQueued(req.Method(), req.URL(), req.Tag(), true)
			return nil
		}
		q.waiters[cacheKey] = nil
	}
	q.mu.Unlock()

	applog.LogRequestQueued(req.Method(), req.URL(), req.Tag(), false)
	if !req.ShouldCache() {
		q.networkQueue.Push(req)
		metrics.QueueDepthSet("network", q.networkQueue.Len())
		return nil
	}
	q.cacheQueue.Push(req)
	metrics.QueueDepthSet("cache", q.cacheQueue.Len())
	return nil
}

// finish is called by a Requester exactly once, at the end of its
// lifecycle (delivered, errored, or canceled). It removes the request
// from bookkeeping and, if it was the primary for a coalesced cache key,
// re-admits every waiter so each can observe the cache entry the primary
// just wrote (or the miss it left behind, which simply routes them to
// the network queue again).
func (q *RequestQueue) finish(req Requester) {
	q.mu.Lock()
	delete(q.currentRequests, req)

	var readmit []Requester
	if req.ShouldCache() {
		cacheKey := req.CacheKey()
		if waiters, exists := q.waiters[cacheKey]; exists {
			readmit = waiters
			delete(q.waiters, cacheKey)
		}
	}
	q.mu.Unlock()

	for _, w := range readmit {
		q.cacheQueue.Push(w)
	}
}

// CancelAll cancels every current request whose tag equals tag.
func (q *RequestQueue) CancelAll(tag string) {
	q.CancelAllFunc(func(r Requester) bool { return r.Tag() == tag })
}

// CancelAllFunc cancels every current request matched by predicate.
func (q *RequestQueue) CancelAllFunc(predicate func(Requester) bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for req := range q.currentRequests {
		if predicate(req) {
			req.Cancel()
		}
	}
}

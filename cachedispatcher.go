package jus

import (
	"github.com/gitter-badger/jus/internal/applog"
	"github.com/gitter-badger/jus/internal/metrics"
)

// CacheDispatcher is the single goroutine that serves the cache queue.
// For every request it either serves a fresh/soft-expired cache hit
// directly, or forwards the request (optionally carrying the stale entry
// for revalidation) to the network queue.
type CacheDispatcher struct {
	cacheQueue   *blockingPriorityQueue
	networkQueue *blockingPriorityQueue
	cache        Cache
	delivery     *ResponseDelivery
	done         chan struct{}
}

func newCacheDispatcher(cacheQueue, networkQueue *blockingPriorityQueue, cache Cache, delivery *ResponseDelivery) *CacheDispatcher {
	return &CacheDispatcher{
		cacheQueue:   cacheQueue,
		networkQueue: networkQueue,
		cache:        cache,
		delivery:     delivery,
		done:         make(chan struct{}),
	}
}

func (d *CacheDispatcher) run() {
	defer close(d.done)
	for {
		req, ok := d.cacheQueue.Pop()
		if !ok {
			return
		}
		d.process(req)
	}
}

func (d *CacheDispatcher) process(req Requester) {
	metrics.QueueDepthSet("cache", d.cacheQueue.Len())

	if req.IsCanceled() {
		metrics.DispatchInc("cache", "canceled")
		req.Finish("canceled-in-cache-queue")
		return
	}

	if !req.ShouldCache() {
		d.networkQueue.Push(req)
		metrics.QueueDepthSet("network", d.networkQueue.Len())
		return
	}

	entry, ok := d.cache.Get(req.CacheKey())
	if !ok {
		metrics.CacheOutcomeInc("miss")
		applog.LogCacheOutcome(req.Method(), req.URL(), "miss")
		d.networkQueue.Push(req)
		metrics.QueueDepthSet("network", d.networkQueue.Len())
		return
	}

	if entry.IsExpired() {
		metrics.CacheOutcomeInc("miss")
		applog.LogCacheOutcome(req.Method(), req.URL(), "expired")
		req.SetCacheEntry(entry)
		d.networkQueue.Push(req)
		metrics.QueueDepthSet("network", d.networkQueue.Len())
		return
	}

	cached := &NetworkResponse{
		StatusCode: 200,
		Data:       entry.Data,
		Headers:    entry.ResponseHeaders,
	}

	if entry.NeedsRevalidation() {
		metrics.CacheOutcomeInc("stale")
		applog.LogCacheOutcome(req.Method(), req.URL(), "stale")
		req.SetCacheEntry(entry)
		d.delivery.PostResponse(req, cached, func() {
			d.networkQueue.Push(req)
			metrics.QueueDepthSet("network", d.networkQueue.Len())
		})
		metrics.DispatchInc("cache", "revalidating")
		return
	}

	metrics.CacheOutcomeInc("fresh")
	applog.LogCacheOutcome(req.Method(), req.URL(), "fresh")
	metrics.DispatchInc("cache", "delivered")
	d.delivery.PostResponse(req, cached, nil)
}

package jus

import (
	"context"

	"github.com/gitter-badger/jus/internal/applog"
	"github.com/gitter-badger/jus/internal/metrics"
)

// NetworkDispatcher is one worker in the fixed-size pool that serves the
// network queue. Each dispatcher runs its own goroutine, pulling one
// request at a time, performing the full retry loop through Network,
// writing any resulting cacheable entry, and posting the terminal
// outcome. If the request was already delivered by CacheDispatcher's
// soft-expired path, a 304 (or a failed revalidation) only refreshes the
// cache and finishes the request silently; a response with changed data
// is delivered a second time.
type NetworkDispatcher struct {
	networkQueue *blockingPriorityQueue
	network      *Network
	cache        Cache
	delivery     *ResponseDelivery
	ctx          context.Context
	done         chan struct{}
}

func newNetworkDispatcher(ctx context.Context, networkQueue *blockingPriorityQueue, network *Network, cache Cache, delivery *ResponseDelivery) *NetworkDispatcher {
	return &NetworkDispatcher{
		networkQueue: networkQueue,
		network:      network,
		cache:        cache,
		delivery:     delivery,
		ctx:          ctx,
		done:         make(chan struct{}),
	}
}

func (d *NetworkDispatcher) run() {
	defer close(d.done)
	for {
		req, ok := d.networkQueue.Pop()
		if !ok {
			return
		}
		d.process(req)
	}
}

func (d *NetworkDispatcher) process(req Requester) {
	metrics.QueueDepthSet("network", d.networkQueue.Len())

	if req.IsCanceled() {
		metrics.DispatchInc("network", "canceled")
		req.Finish("canceled-in-network-queue")
		return
	}

	resp, err := d.network.PerformRequest(d.ctx, req)

	alreadyDelivered := req.IsDelivered()

	if err != nil {
		metrics.DispatchInc("network", "error")
		applog.LogDelivery(req.Method(), req.URL(), "error")
		if alreadyDelivered {
			req.Finish("background-revalidation-failed")
			return
		}
		d.delivery.PostError(req, err)
		return
	}

	if req.ShouldCache() {
		if entry, ok := ParseCacheHeaders(resp); ok {
			_ = d.cache.Put(req.CacheKey(), entry)
		}
	}

	if alreadyDelivered && resp.NotModified {
		metrics.DispatchInc("network", "revalidated")
		req.Finish("background-revalidation-complete")
		return
	}

	metrics.DispatchInc("network", "delivered")
	applog.LogDelivery(req.Method(), req.URL(), "success")
	d.delivery.PostResponse(req, resp, nil)
}

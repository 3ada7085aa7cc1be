package jus

import (
	"container/heap"
	"sync"
)

// requestHeap orders Requesters by priority descending, then by sequence
// ascending, giving FIFO-within-priority semantics as required by the
// heap.Interface contract.
type requestHeap []Requester

func (h requestHeap) Len() int { return len(h) }
func (h requestHeap) Less(i, j int) bool {
	if h[i].Priority() != h[j].Priority() {
		return h[i].Priority() > h[j].Priority()
	}
	return h[i].Sequence() < h[j].Sequence()
}
func (h requestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *requestHeap) Push(x any)   { *h = append(*h, x.(Requester)) }
func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// blockingPriorityQueue is a condition-variable-guarded priority queue
// used to hand work between the RequestQueue's Add and its dispatcher
// goroutines. Pop blocks until an item is available or the queue is
// stopped.
type blockingPriorityQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	heap    requestHeap
	stopped bool
}

func newBlockingPriorityQueue() *blockingPriorityQueue {
	q := &blockingPriorityQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *blockingPriorityQueue) Push(r Requester) {
	q.mu.Lock()
	heap.Push(&q.heap, r)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until a request is available. ok is false only once the
// queue has been stopped and drained.
func (q *blockingPriorityQueue) Pop() (r Requester, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.heap.Len() == 0 && !q.stopped {
		q.cond.Wait()
	}
	if q.heap.Len() == 0 {
		return nil, false
	}
	item := heap.Pop(&q.heap).(Requester)
	return item, true
}

func (q *blockingPriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

func (q *blockingPriorityQueue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

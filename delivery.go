package jus

// Executor runs a delivery closure on whatever thread the caller wants
// listener callbacks invoked on — a UI main-thread loop, a single
// dedicated goroutine, or, for synchronous callers/tests, the calling
// goroutine itself.
type Executor interface {
	Execute(func())
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(func())

func (f ExecutorFunc) Execute(task func()) { f(task) }

// ImmediateExecutor runs the closure synchronously, on whatever
// goroutine calls Execute. Useful for tests and for callers that don't
// need delivery hopped onto a dedicated thread.
var ImmediateExecutor Executor = ExecutorFunc(func(f func()) { f() })

// GoroutineExecutor starts a fresh goroutine per delivery. Useful when
// listeners are cheap and independent; offers no ordering guarantee
// across deliveries.
var GoroutineExecutor Executor = ExecutorFunc(func(f func()) { go f() })

// SerialExecutor drains a single channel on one dedicated goroutine, so
// deliveries run one at a time in the order they were posted — the
// closest analogue to a UI main-thread handler.
type SerialExecutor struct {
	tasks chan func()
	done  chan struct{}
}

// NewSerialExecutor starts the draining goroutine immediately. Call Stop
// to shut it down once no more deliveries will be posted.
func NewSerialExecutor(bufferSize int) *SerialExecutor {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	e := &SerialExecutor{
		tasks: make(chan func(), bufferSize),
		done:  make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *SerialExecutor) run() {
	for {
		select {
		case task, ok := <-e.tasks:
			if !ok {
				close(e.done)
				return
			}
			task()
		}
	}
}

func (e *SerialExecutor) Execute(task func()) { e.tasks <- task }

// Stop closes the task channel and waits for the drain goroutine to
// finish processing whatever was already queued.
func (e *SerialExecutor) Stop() {
	close(e.tasks)
	<-e.done
}

var (
	_ Executor = ImmediateExecutor
	_ Executor = GoroutineExecutor
	_ Executor = (*SerialExecutor)(nil)
)

// ResponseDelivery posts a callback (success or error) onto an Executor,
// then finishes the request. The optional afterwork closure passed to
// PostResponse runs on the executor after listeners, in place of Finish —
// CacheDispatcher uses it to re-enqueue a soft-expired request for
// background revalidation. That revalidation delivers a second success
// only when the server returns changed data; a 304 is not delivered.
type ResponseDelivery struct {
	executor Executor
}

// NewResponseDelivery builds a delivery gate around executor.
func NewResponseDelivery(executor Executor) *ResponseDelivery {
	return &ResponseDelivery{executor: executor}
}

// PostResponse delivers a success outcome. If afterwork is non-nil, it
// runs instead of Finish: the request is still alive (e.g. CacheDispatcher
// handed a soft-expired request back to the network queue for background
// revalidation) and whoever completes that follow-up work is responsible
// for eventually calling Finish exactly once.
func (d *ResponseDelivery) PostResponse(req Requester, resp *NetworkResponse, afterwork func()) {
	d.executor.Execute(func() {
		if req.IsCanceled() {
			req.Finish("canceled-at-delivery")
			return
		}
		req.MarkDelivered()
		req.DeliverSuccess(resp)
		if afterwork != nil {
			afterwork()
			return
		}
		req.Finish("delivered")
	})
}

// PostError delivers a failure outcome.
func (d *ResponseDelivery) PostError(req Requester, err error) {
	d.executor.Execute(func() {
		if req.IsCanceled() {
			req.Finish("canceled-at-delivery")
			return
		}
		req.MarkDelivered()
		req.DeliverError(err)
		req.Finish("errored")
	})
}

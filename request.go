package jus

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Priority orders requests within both the cache and network queues.
// Higher values are served first; within one priority, requests are
// served in admission order.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityImmediate
)

// RequestConverter turns a caller-supplied value into the bytes and
// content-type that go out on the wire.
type RequestConverter[U any] func(U) ([]byte, string, error)

// ResponseConverter turns a NetworkResponse into the caller's result
// type. A non-nil error is delivered as a ParseError.
type ResponseConverter[T any] func(*NetworkResponse) (T, error)

// Requester is the non-generic capability surface the queue and
// dispatchers operate on. Request[T] implements it; the generic type
// parameter lives only in the converter functions and the listener
// callbacks, so the rest of the engine — queues, dispatchers, the
// network façade — never needs to know or switch on the result type T.
type Requester interface {
	Method() string
	URL() string
	EncodedBody() ([]byte, string, error)
	Headers() http.Header
	Priority() Priority
	Sequence() uint64
	SetSequence(uint64)
	Tag() string
	CacheKey() string
	ShouldCache() bool
	RetryPolicy() *RetryPolicy
	CacheEntry() *Entry
	SetCacheEntry(*Entry)
	IsCanceled() bool
	Cancel()
	IsDelivered() bool
	MarkDelivered()
	DeliverSuccess(resp *NetworkResponse)
	DeliverError(err error)
	Finish(reason string)
	attachFinisher(func(Requester))
}

// Request is a single unit of work: an HTTP call plus the converters
// needed to turn a Go value into a body and a NetworkResponse back into a
// Go value of type T.
type Request[T any] struct {
	method      string
	url         string
	body        any
	encodeBody  RequestConverter[any]
	decode      ResponseConverter[T]
	headers     http.Header
	priority    Priority
	tag         string
	cacheKeyFn  func() string
	shouldCache bool

	sequence uint64
	policy   *RetryPolicy
	entry    *Entry

	canceled  atomic.Bool
	delivered atomic.Bool

	onSuccess func(T)
	onError   func(error)
	finisher  func(Requester)
}

// NewRequest builds a Request for method/url. decode converts the raw
// response into T. By default GET requests are cacheable and everything
// else is not; override with WithCacheable.
func NewRequest[T any](method, url string, decode ResponseConverter[T]) *Request[T] {
	return &Request[T]{
		method:      method,
		url:         url,
		decode:      decode,
		headers:     http.Header{},
		priority:    PriorityNormal,
		shouldCache: method == http.MethodGet,
		policy:      NewDefaultRetryPolicy(),
	}
}

// WithBody attaches a request body value and the converter that encodes
// it. Calling this on a GET request is allowed but unusual.
func WithBody[T, U any](r *Request[T], body U, encode RequestConverter[U]) *Request[T] {
	r.body = body
	r.encodeBody = func(v any) ([]byte, string, error) { return encode(v.(U)) }
	return r
}

func (r *Request[T]) WithPriority(p Priority) *Request[T] { r.priority = p; return r }
func (r *Request[T]) WithTag(tag string) *Request[T]      { r.tag = tag; return r }
func (r *Request[T]) WithHeader(k, v string) *Request[T]  { r.headers.Set(k, v); return r }
func (r *Request[T]) WithCacheable(b bool) *Request[T]    { r.shouldCache = b; return r }
func (r *Request[T]) WithRetryPolicy(p *RetryPolicy) *Request[T] {
	r.policy = p
	return r
}
func (r *Request[T]) WithCacheKey(fn func() string) *Request[T] { r.cacheKeyFn = fn; return r }

// Listen registers the callbacks invoked on the delivery executor.
func (r *Request[T]) Listen(onSuccess func(T), onError func(error)) *Request[T] {
	r.onSuccess = onSuccess
	r.onError = onError
	return r
}

func (r *Request[T]) Method() string { return r.method }
func (r *Request[T]) URL() string    { return r.url }

func (r *Request[T]) EncodedBody() ([]byte, string, error) {
	if r.encodeBody == nil {
		return nil, "", nil
	}
	return r.encodeBody(r.body)
}

func (r *Request[T]) Headers() http.Header    { return r.headers }
func (r *Request[T]) Priority() Priority      { return r.priority }
func (r *Request[T]) Sequence() uint64        { return r.sequence }
func (r *Request[T]) SetSequence(seq uint64)  { r.sequence = seq }
func (r *Request[T]) Tag() string             { return r.tag }
func (r *Request[T]) ShouldCache() bool       { return r.shouldCache }
func (r *Request[T]) RetryPolicy() *RetryPolicy { return r.policy }
func (r *Request[T]) CacheEntry() *Entry      { return r.entry }
func (r *Request[T]) SetCacheEntry(e *Entry)  { r.entry = e }

func (r *Request[T]) CacheKey() string {
	if r.cacheKeyFn != nil {
		return r.cacheKeyFn()
	}
	return r.method + " " + r.url
}

func (r *Request[T]) IsCanceled() bool { return r.canceled.Load() }
func (r *Request[T]) Cancel()          { r.canceled.Store(true) }

func (r *Request[T]) IsDelivered() bool  { return r.delivered.Load() }
func (r *Request[T]) MarkDelivered()     { r.delivered.Store(true) }

func (r *Request[T]) DeliverSuccess(resp *NetworkResponse) {
	if r.decode == nil {
		return
	}
	value, err := r.decode(resp)
	if err != nil {
		r.DeliverError(NewParseError(err, resp))
		return
	}
	if r.onSuccess != nil {
		r.onSuccess(value)
	}
}

func (r *Request[T]) DeliverError(err error) {
	if r.onError != nil {
		r.onError(err)
	}
}

func (r *Request[T]) Finish(reason string) {
	if r.finisher != nil {
		r.finisher(r)
	}
}

func (r *Request[T]) attachFinisher(f func(Requester)) { r.finisher = f }

// String renders a short debug identifier for use in queue logging.
func (r *Request[T]) String() string {
	return fmt.Sprintf("%s %s [seq=%d pri=%d]", r.method, r.url, r.sequence, r.priority)
}

var _ Requester = (*Request[struct{}])(nil)

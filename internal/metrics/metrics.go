// Package metrics defines the Prometheus instrumentation for the
// request queue: admission, dispatch, cache effectiveness, and retry
// behavior. Labels are kept low-cardinality throughout — status classes
// and cache outcomes, never raw URLs or tags.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// queueDepth reports requests currently waiting in either the cache
	// or network queue (not yet picked up by a dispatcher).
	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jus_queue_depth",
			Help: "Current queue depth by queue name (cache, network)",
		},
		[]string{"queue"},
	)
	// queueRejected counts Add calls rejected because MaxQueueDepth was
	// reached.
	queueRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jus_queue_rejected_total",
			Help: "Total requests rejected because the queue was at capacity",
		},
	)
	// dispatchTotal counts requests handled by a dispatcher, labeled by
	// which queue served them and the outcome.
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jus_dispatch_total",
			Help: "Total requests dispatched, labeled by queue and outcome",
		},
		[]string{"queue", "outcome"},
	)
	// cacheOutcomeTotal counts cache lookups by outcome: fresh, stale, miss.
	cacheOutcomeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jus_cache_outcome_total",
			Help: "Total cache lookups by outcome (fresh, stale, miss)",
		},
		[]string{"outcome"},
	)
	// networkRequestDuration measures the full PerformRequest call,
	// including all retries, bucketed by the final status class.
	networkRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jus_network_request_duration_seconds",
			Help:    "End-to-end PerformRequest duration including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status_class"},
	)
	// retryTotal counts retries handed to a RetryPolicy, by the error
	// kind that triggered them.
	retryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jus_retry_total",
			Help: "Total retry attempts by triggering error kind",
		},
		[]string{"kind"},
	)
	// authRefreshTotal counts Authenticator refresh attempts and their
	// result.
	authRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jus_auth_refresh_total",
			Help: "Total authenticator refresh attempts by result (ok, failed)",
		},
		[]string{"result"},
	)
)

func init() {
	// MustRegister panics on programmer errors (e.g., duplicate
	// registration), which is the intended failure mode here.
	prometheus.MustRegister(
		queueDepth,
		queueRejected,
		dispatchTotal,
		cacheOutcomeTotal,
		networkRequestDuration,
		retryTotal,
		authRefreshTotal,
	)
}

// QueueDepthSet records the current depth of one of the two queues.
func QueueDepthSet(queue string, depth int) { queueDepth.WithLabelValues(queue).Set(float64(depth)) }

// QueueRejectedInc increments the admission-rejection counter.
func QueueRejectedInc() { queueRejected.Inc() }

// DispatchInc records one dispatched request's outcome (delivered,
// error, canceled, revalidating, revalidated).
func DispatchInc(queue, outcome string) { dispatchTotal.WithLabelValues(queue, outcome).Inc() }

// CacheOutcomeInc records one cache lookup's outcome.
func CacheOutcomeInc(outcome string) { cacheOutcomeTotal.WithLabelValues(outcome).Inc() }

// ObserveNetworkRequest records the duration of a completed
// PerformRequest call. statusClass should be a bounded value such as
// "2xx", "4xx", "5xx", or "error" — see StatusClass.
func ObserveNetworkRequest(statusClass string, dur time.Duration) {
	networkRequestDuration.WithLabelValues(statusClass).Observe(dur.Seconds())
}

// RetryInc increments the retry counter for the given error kind.
func RetryInc(kind string) { retryTotal.WithLabelValues(kind).Inc() }

// AuthRefreshInc records an authenticator refresh attempt's result.
func AuthRefreshInc(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	authRefreshTotal.WithLabelValues(result).Inc()
}

// StatusClass buckets a numeric HTTP status into a low-cardinality label.
func StatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return strconv.Itoa(status)
	}
}

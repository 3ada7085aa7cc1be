package jus

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gitter-badger/jus/internal/applog"
	"github.com/gitter-badger/jus/internal/metrics"
)

// NetworkRequest is the plain-data view of a Requester handed to a
// Driver: method, URL, encoded body, and the headers the façade wants
// sent (including any validators and auth token it added).
type NetworkRequest struct {
	Method  string
	URL     string
	Body    []byte
	Headers http.Header
}

// NetworkResponse is a transport driver's raw result for one attempt.
type NetworkResponse struct {
	StatusCode    int
	Data          []byte
	Headers       http.Header
	NotModified   bool
	NetworkTimeMs int64
}

// Driver performs exactly one HTTP attempt and returns either a
// NetworkResponse or an error. A Driver must honor ctx's deadline and
// must never retry internally; all retry/backoff decisions belong to
// Network.PerformRequest.
type Driver interface {
	Perform(ctx context.Context, req *NetworkRequest) (*NetworkResponse, error)
}

// Network is the client-facing transport façade: it builds the outgoing
// headers (validators, auth), invokes the Driver, classifies the result
// into the error taxonomy, and drives the request's RetryPolicy and
// Authenticator across as many attempts as they allow.
type Network struct {
	driver        Driver
	authenticator Authenticator
	slowThreshold time.Duration
	logf          func(format string, args ...any)
}

// NewNetwork builds a façade around driver. authenticator may be nil.
func NewNetwork(driver Driver, authenticator Authenticator) *Network {
	return &Network{
		driver:        driver,
		authenticator: authenticator,
		slowThreshold: 3 * time.Second,
		logf:          func(string, ...any) {},
	}
}

// WithSlowThreshold overrides the duration above which an attempt is
// logged as slow.
func (n *Network) WithSlowThreshold(d time.Duration) *Network {
	n.slowThreshold = d
	return n
}

// WithLogger installs a printf-style sink for slow-request logging.
func (n *Network) WithLogger(logf func(format string, args ...any)) *Network {
	n.logf = logf
	return n
}

// PerformRequest runs the full attempt/retry loop for req and returns
// either a successful NetworkResponse or the final classified error.
func (n *Network) PerformRequest(ctx context.Context, req Requester) (*NetworkResponse, error) {
	authRetried := false
	attempt := 0
	requestStart := time.Now()

	resp, err := n.performLoop(ctx, req, &authRetried, &attempt)

	statusClass := "error"
	if resp != nil {
		statusClass = metrics.StatusClass(resp.StatusCode)
	}
	metrics.ObserveNetworkRequest(statusClass, time.Since(requestStart))
	return resp, err
}

func (n *Network) performLoop(ctx context.Context, req Requester, authRetried *bool, attempt *int) (*NetworkResponse, error) {
	for {
		*attempt++
		start := time.Now()
		headers := n.buildHeaders(ctx, req)

		body, contentType, err := req.EncodedBody()
		if err != nil {
			return nil, NewRuntimeError(err)
		}
		if contentType != "" {
			headers.Set("Content-Type", contentType)
		}

		timeoutMs := req.RetryPolicy().CurrentTimeoutMs
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)

		resp, err := n.driver.Perform(attemptCtx, &NetworkRequest{
			Method:  req.Method(),
			URL:     req.URL(),
			Body:    body,
			Headers: headers,
		})
		cancel()
		elapsed := time.Since(start)

		if elapsed > n.slowThreshold {
			n.logf("slow request: %s %s took %s", req.Method(), req.URL(), elapsed)
		}

		if err != nil {
			classified := classifyTransportError(ctx, attemptCtx, err, elapsed)
			applog.LogNetworkAttempt(req.Method(), req.URL(), *attempt, -1, elapsed, classified)
			if !isRetryable(classified) {
				return nil, classified
			}
			metrics.RetryInc(errorKind(classified))
			if retryErr := req.RetryPolicy().Retry(classified); retryErr != nil {
				return nil, retryErr
			}
			applog.LogRetry(req.Method(), req.URL(), errorKind(classified), time.Duration(req.RetryPolicy().CurrentTimeoutMs)*time.Millisecond, req.RetryPolicy().CurrentRetryCount)
			continue
		}

		applog.LogNetworkAttempt(req.Method(), req.URL(), *attempt, resp.StatusCode, elapsed, nil)

		authWasUnset := !*authRetried
		outcome, retryable, classified := n.classifyResponse(ctx, req, resp, elapsed, authRetried)
		if authWasUnset && *authRetried {
			metrics.AuthRefreshInc(retryable)
			applog.LogAuthRefresh(req.Method(), req.URL(), retryable, classified)
		}
		if classified != nil {
			if !retryable {
				return nil, classified
			}
			metrics.RetryInc(errorKind(classified))
			if retryErr := req.RetryPolicy().Retry(classified); retryErr != nil {
				return nil, retryErr
			}
			applog.LogRetry(req.Method(), req.URL(), errorKind(classified), time.Duration(req.RetryPolicy().CurrentTimeoutMs)*time.Millisecond, req.RetryPolicy().CurrentRetryCount)
			continue
		}
		return outcome, nil
	}
}

// errorKind returns a low-cardinality label identifying a classified
// error's concrete type, for retry/metric labeling.
func errorKind(err error) string {
	switch err.(type) {
	case *TimeoutError:
		return "timeout"
	case *NoConnectionError:
		return "no_connection"
	case *NetworkError:
		return "network"
	case *ServerError:
		return "server"
	case *AuthFailureError:
		return "auth_failure"
	case *ForbiddenError:
		return "forbidden"
	case *RequestError:
		return "request"
	case *ParseError:
		return "parse"
	default:
		return "runtime"
	}
}

func (n *Network) buildHeaders(ctx context.Context, req Requester) http.Header {
	headers := make(http.Header, len(req.Headers())+3)
	for k, vs := range req.Headers() {
		for _, v := range vs {
			headers.Add(k, v)
		}
	}

	if entry := req.CacheEntry(); entry != nil {
		if entry.ETag != "" {
			headers.Set("If-None-Match", entry.ETag)
		}
		if !entry.LastModified.IsZero() {
			headers.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
		}
	}

	if n.authenticator != nil {
		if token, err := n.authenticator.GetAuthToken(ctx, false); err == nil && token != "" {
			headers.Set("Authorization", "Bearer "+token)
		}
	}
	return headers
}

// classifyResponse inspects a NetworkResponse's status and decides
// whether it is a final outcome (nil classified error), a terminal
// error, or a retryable error. *authRetried tracks whether this request
// has already consumed its single auth-refresh attempt.
func (n *Network) classifyResponse(ctx context.Context, req Requester, resp *NetworkResponse, elapsed time.Duration, authRetried *bool) (outcome *NetworkResponse, retryable bool, classified error) {
	resp.NetworkTimeMs = elapsed.Milliseconds()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		entry := req.CacheEntry()
		if entry == nil {
			return &NetworkResponse{StatusCode: http.StatusNotModified, Headers: resp.Headers, NotModified: true, NetworkTimeMs: resp.NetworkTimeMs}, false, nil
		}
		merged := mergeHeaders(entry.ResponseHeaders, resp.Headers)
		return &NetworkResponse{StatusCode: http.StatusNotModified, Data: entry.Data, Headers: merged, NotModified: true, NetworkTimeMs: resp.NetworkTimeMs}, false, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp, false, nil

	case resp.StatusCode == http.StatusUnauthorized:
		if n.authenticator == nil || *authRetried {
			return nil, false, NewAuthFailureError(resp, elapsed)
		}
		*authRetried = true
		if _, err := n.authenticator.GetAuthToken(ctx, true); err != nil {
			return nil, false, NewAuthFailureError(resp, elapsed)
		}
		return nil, true, NewAuthFailureError(resp, elapsed)

	case resp.StatusCode == http.StatusForbidden:
		return nil, false, NewForbiddenError(resp, elapsed)

	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, true, NewTimeoutError(resp, elapsed)

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, NewRequestError(resp, elapsed)

	case resp.StatusCode >= 500:
		return nil, true, NewServerError(resp, elapsed)

	default:
		return resp, false, nil
	}
}

func classifyTransportError(parentCtx, attemptCtx context.Context, err error, elapsed time.Duration) error {
	var runtimeErr *RuntimeError
	if errors.As(err, &runtimeErr) {
		return runtimeErr
	}
	if attemptCtx.Err() == context.DeadlineExceeded {
		return NewTimeoutError(nil, elapsed)
	}
	if parentCtx.Err() != nil {
		return NewTimeoutError(nil, elapsed)
	}
	if isConnectionRefusedOrDNS(err) {
		return NewNoConnectionError(err, elapsed)
	}
	return NewNetworkError(err, elapsed)
}

func mergeHeaders(cached, fresh http.Header) http.Header {
	merged := make(http.Header, len(cached)+len(fresh))
	for k, vs := range cached {
		merged[k] = append([]string(nil), vs...)
	}
	for k, vs := range fresh {
		merged[k] = append([]string(nil), vs...)
	}
	return merged
}

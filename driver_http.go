package jus

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
)

// HTTPDriver is the default Driver: it issues requests through a plain
// *http.Client. Callers that need connection pooling tuning, proxies, or
// TLS configuration should build their own *http.Client and pass it to
// NewHTTPDriver.
type HTTPDriver struct {
	client *http.Client
}

// NewHTTPDriver wraps client (http.DefaultClient's zero value is used if
// client is nil, but callers should almost always supply their own with
// sane dial/keepalive timeouts).
func NewHTTPDriver(client *http.Client) *HTTPDriver {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPDriver{client: client}
}

func (d *HTTPDriver) Perform(ctx context.Context, req *NetworkRequest) (*NetworkResponse, error) {
	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, NewRuntimeError(err)
	}
	httpReq.Header = req.Headers

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &NetworkResponse{
		StatusCode: resp.StatusCode,
		Data:       data,
		Headers:    resp.Header,
	}, nil
}

var _ Driver = (*HTTPDriver)(nil)

func isConnectionRefusedOrDNS(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}

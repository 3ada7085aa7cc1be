package jus

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseCacheHeaders inspects a NetworkResponse's headers and builds the
// Cache.Entry that should be stored for it. The second return value is
// false when the response must not be cached at all (no-store, no-cache,
// or neither freshness information nor an ETag/Last-Modified validator).
// A response with a validator but no freshness information is cached
// with a zero lifetime, so it is revalidated on the next access.
//
// Precedence follows RFC 7234: an explicit Cache-Control max-age wins over
// Expires; must-revalidate/proxy-revalidate collapses SoftTTL onto TTL so
// the entry is always revalidated once stale rather than served past its
// soft deadline.
func ParseCacheHeaders(resp *NetworkResponse) (*Entry, bool) {
	headers := resp.Headers
	if headers == nil {
		headers = http.Header{}
	}

	serverDate := parseHTTPDate(headers.Get("Date"), time.Now())
	lastModified := parseHTTPDate(headers.Get("Last-Modified"), time.Time{})
	etag := headers.Get("ETag")

	cacheControl := headers.Get("Cache-Control")
	directives := parseCacheControlDirectives(cacheControl)

	if _, ok := directives["no-store"]; ok {
		return nil, false
	}
	if _, ok := directives["no-cache"]; ok {
		return nil, false
	}

	var lifetime time.Duration
	haveLifetime := false

	if v, ok := directives["max-age"]; ok {
		if secs, err := strconv.Atoi(v); err == nil {
			lifetime = time.Duration(secs) * time.Second
			haveLifetime = true
		}
	}

	if !haveLifetime {
		if expires := headers.Get("Expires"); expires != "" {
			if t, err := http.ParseTime(expires); err == nil {
				lifetime = t.Sub(serverDate)
				haveLifetime = true
			}
		}
	}

	if !haveLifetime {
		if etag == "" && lastModified.IsZero() {
			return nil, false
		}
		lifetime = 0
	}

	if lifetime < 0 {
		lifetime = 0
	}

	now := time.Now()
	softTTL := now.Add(lifetime)
	ttl := softTTL

	_, mustRevalidate := directives["must-revalidate"]
	_, proxyRevalidate := directives["proxy-revalidate"]
	if mustRevalidate || proxyRevalidate {
		ttl = softTTL
	}

	entry := &Entry{
		Data:            resp.Data,
		ETag:            etag,
		ServerDate:      serverDate,
		LastModified:    lastModified,
		TTL:             ttl,
		SoftTTL:         softTTL,
		ResponseHeaders: headers,
	}
	return entry, true
}

// ParseCharset returns the charset named in a Content-Type header,
// defaulting to ISO-8859-1 for text/* content as HTTP/1.1 requires when
// no charset parameter is present.
func ParseCharset(headers http.Header) string {
	contentType := headers.Get("Content-Type")
	if contentType == "" {
		return "ISO-8859-1"
	}
	parts := strings.Split(contentType, ";")
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(strings.ToLower(p), "charset=") {
			return strings.Trim(p[len("charset="):], `"`)
		}
	}
	return "ISO-8859-1"
}

func parseCacheControlDirectives(header string) map[string]string {
	directives := make(map[string]string)
	if header == "" {
		return directives
	}
	for _, segment := range strings.Split(header, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		kv := strings.SplitN(segment, "=", 2)
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		if len(kv) == 2 {
			directives[key] = strings.Trim(strings.TrimSpace(kv[1]), `"`)
		} else {
			directives[key] = ""
		}
	}
	return directives
}

func parseHTTPDate(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	if t, err := http.ParseTime(value); err == nil {
		return t
	}
	return fallback
}

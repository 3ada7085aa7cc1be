// Command jusdemo wires a RequestQueue to a disk-backed cache and the
// default HTTP driver, fetches a handful of URLs given on the command
// line, and serves /metrics so the queue's Prometheus instrumentation can
// be scraped while it runs.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gitter-badger/jus"
	"github.com/gitter-badger/jus/internal/applog"
	"github.com/gitter-badger/jus/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env file (%v), using system environment variables", err)
	}

	opts := config.Load()
	applog.Configure(opts.LokiURL, opts.InfoEnabled, opts.DebugEnabled, opts.ErrorEnabled)

	cacheDir := flag.String("cache-dir", "jus-demo-cache", "directory for the on-disk HTTP cache")
	listenAddr := flag.String("listen", ":9110", "address to serve /metrics on")
	flag.Parse()
	urls := flag.Args()
	if len(urls) == 0 {
		urls = []string{"https://example.com"}
	}

	cache := jus.NewDiskCache(*cacheDir, opts.CacheMaxSizeBytes)
	driver := jus.NewHTTPDriver(&http.Client{Timeout: 30 * time.Second})
	network := jus.NewNetwork(driver, nil).
		WithSlowThreshold(time.Duration(opts.SlowRequestThresholdMs) * time.Millisecond).
		WithLogger(func(format string, args ...any) { log.Printf(format, args...) })
	delivery := jus.NewResponseDelivery(jus.GoroutineExecutor)

	queue := jus.NewRequestQueue(cache, network, delivery, jus.QueueConfig{
		NetworkThreadPoolSize: opts.NetworkThreadPoolSize,
		MaxQueueDepth:         opts.MaxQueueDepth,
	})
	if err := queue.Start(); err != nil {
		log.Fatalf("start queue: %v", err)
	}
	defer queue.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("serving /metrics on %s", *listenAddr)
		if err := http.ListenAndServe(*listenAddr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	done := make(chan struct{}, len(urls))
	for _, u := range urls {
		u := u
		req := jus.NewRequest(http.MethodGet, u, decodeBody).
			WithRetryPolicy(jus.NewRetryPolicy(opts.DefaultTimeoutMs, opts.DefaultMaxRetries, opts.DefaultBackoffMultiplier)).
			Listen(
				func(body string) {
					log.Printf("GET %s -> %d bytes", u, len(body))
					done <- struct{}{}
				},
				func(err error) {
					log.Printf("GET %s failed: %v", u, err)
					done <- struct{}{}
				},
			)
		if err := queue.Add(req); err != nil {
			log.Printf("enqueue %s: %v", u, err)
			done <- struct{}{}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	for i := 0; i < len(urls); i++ {
		select {
		case <-done:
		case <-ctx.Done():
			log.Printf("timed out waiting for %d of %d requests", len(urls)-i, len(urls))
			os.Exit(1)
		}
	}
}

func decodeBody(resp *jus.NetworkResponse) (string, error) {
	return string(resp.Data), nil
}

// Package config loads the tunables enumerated in the library's
// configuration surface from environment variables, with a small typed
// getter helper per type — the same pattern as a twelve-factor service
// config loader, generalized from a single listen/target pair to the
// queue/cache/pool/retry knobs a request engine needs.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Options holds every environment-driven tunable for a Queue.
type Options struct {
	NetworkThreadPoolSize int
	CacheMaxSizeBytes     int64
	CacheHysteresisFactor float64
	PoolMaxBytes          int
	SlowRequestThresholdMs int64
	DefaultTimeoutMs      int64
	DefaultMaxRetries     int
	DefaultBackoffMultiplier float64
	MaxQueueDepth         int
	LokiURL               string
	InfoEnabled           bool
	DebugEnabled          bool
	ErrorEnabled          bool
}

const (
	defaultNetworkThreadPoolSize  = 4
	defaultCacheMaxSizeBytes      = int64(5 * 1024 * 1024)
	defaultCacheHysteresisFactor  = 0.9
	defaultPoolMaxBytes           = 4096
	defaultSlowRequestThresholdMs = int64(3000)
	defaultTimeoutMs              = int64(2500)
	defaultMaxRetries             = 1
	defaultBackoffMultiplier      = 1.0
	defaultMaxQueueDepth          = 0
)

// Load reads every JUS_* environment variable, falling back to the
// package defaults when a variable is unset or unparsable.
func Load() *Options {
	return &Options{
		NetworkThreadPoolSize:    getEnvInt("JUS_NETWORK_THREADS", defaultNetworkThreadPoolSize),
		CacheMaxSizeBytes:        getEnvInt64("JUS_CACHE_MAX_BYTES", defaultCacheMaxSizeBytes),
		CacheHysteresisFactor:    getEnvFloat("JUS_CACHE_HYSTERESIS", defaultCacheHysteresisFactor),
		PoolMaxBytes:             getEnvInt("JUS_POOL_MAX_BYTES", defaultPoolMaxBytes),
		SlowRequestThresholdMs:   getEnvInt64("JUS_SLOW_THRESHOLD_MS", defaultSlowRequestThresholdMs),
		DefaultTimeoutMs:         getEnvInt64("JUS_DEFAULT_TIMEOUT_MS", defaultTimeoutMs),
		DefaultMaxRetries:        getEnvInt("JUS_MAX_RETRIES", defaultMaxRetries),
		DefaultBackoffMultiplier: getEnvFloat("JUS_BACKOFF_MULTIPLIER", defaultBackoffMultiplier),
		MaxQueueDepth:            getEnvInt("JUS_MAX_QUEUE_DEPTH", defaultMaxQueueDepth),
		LokiURL:                  getEnv("JUS_LOKI_URL", ""),
		InfoEnabled:              getEnvBool("JUS_LOG_INFO", true),
		DebugEnabled:             getEnvBool("JUS_LOG_DEBUG", false),
		ErrorEnabled:             getEnvBool("JUS_LOG_ERROR", true),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

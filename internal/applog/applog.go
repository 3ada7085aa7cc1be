// Package applog emits structured lifecycle logs for the request engine:
// admission, cache outcome, network attempts, retries, auth refreshes, and
// delivery. Every line is printed locally (subject to level toggles) and
// pushed to Loki as a labeled stream.
package applog

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	lokiURL    string
	lokiOnce   sync.Once
	lokiClient = &http.Client{Timeout: 200 * time.Millisecond}

	// logging level toggles (defaults: INFO/ERROR on, DEBUG off)
	infoEnabled  = true
	debugEnabled = false
	errorEnabled = true
)

func initLoki() {
	lokiURL = ""

	cfgFile := ""
	for _, c := range []string{"configs/config.yaml", "configs/config.yml"} {
		if _, err := os.Stat(c); err == nil {
			cfgFile = c
			break
		}
	}
	if cfgFile != "" {
		var cfg struct {
			Metrics *struct {
				LokiURL string `yaml:"loki_url"`
			} `yaml:"metrics"`
			Logging *struct {
				InfoEnabled  *bool `yaml:"info_enabled"`
				DebugEnabled *bool `yaml:"debug_enabled"`
				ErrorEnabled *bool `yaml:"error_enabled"`
			} `yaml:"logging"`
		}
		if b, err := os.ReadFile(cfgFile); err == nil {
			if err := yaml.Unmarshal(b, &cfg); err == nil {
				if cfg.Metrics != nil && strings.TrimSpace(cfg.Metrics.LokiURL) != "" {
					lokiURL = strings.TrimSpace(cfg.Metrics.LokiURL)
				}
				if cfg.Logging != nil {
					if cfg.Logging.InfoEnabled != nil {
						infoEnabled = *cfg.Logging.InfoEnabled
					}
					if cfg.Logging.DebugEnabled != nil {
						debugEnabled = *cfg.Logging.DebugEnabled
					}
					if cfg.Logging.ErrorEnabled != nil {
						errorEnabled = *cfg.Logging.ErrorEnabled
					}
				}
			}
		}
	}

	if lokiURL != "" && !strings.Contains(lokiURL, "/loki/api/v1/push") {
		lokiURL = strings.TrimRight(lokiURL, "/") + "/loki/api/v1/push"
	}
}

// Configure applies explicit level toggles and a Loki URL, overriding
// whatever configs/config.yaml would otherwise supply. The caller that
// builds the queue (cmd/jusdemo does) calls this once at startup with the
// values resolved by internal/config; RequestQueue itself does not.
func Configure(url string, info, debug, errorLvl bool) {
	lokiOnce.Do(func() {})
	lokiURL = url
	if lokiURL != "" && !strings.Contains(lokiURL, "/loki/api/v1/push") {
		lokiURL = strings.TrimRight(lokiURL, "/") + "/loki/api/v1/push"
	}
	infoEnabled = info
	debugEnabled = debug
	errorEnabled = errorLvl
}

func levelEnabled(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return debugEnabled
	case "error":
		return errorEnabled
	default:
		return infoEnabled
	}
}

// Emit prints locally (if enabled) and pushes the same line to Loki with a
// "level" label.
func Emit(level, app string, labels map[string]string, line string) {
	lvl := strings.ToLower(level)
	if logEnabled() && levelEnabled(lvl) {
		log.Print(line)
	}
	PushLokiWithLevel(lvl, app, labels, line)
}

// PushLokiWithLevel sends a single log line with labels to Loki, adding a
// "level" label. No-op if Loki is not configured or the level is disabled.
func PushLokiWithLevel(level, app string, labels map[string]string, line string) {
	lokiOnce.Do(initLoki)
	if lokiURL == "" || !levelEnabled(level) {
		return
	}

	lbls := map[string]string{
		"app":   app,
		"level": strings.ToLower(strings.TrimSpace(level)),
	}
	for k, v := range labels {
		if strings.TrimSpace(k) == "" {
			continue
		}
		lbls[k] = v
	}

	ts := strconv.FormatInt(time.Now().UnixNano(), 10)
	payload := struct {
		Streams []struct {
			Stream map[string]string `json:"stream"`
			Values [][2]string       `json:"values"`
		} `json:"streams"`
	}{
		Streams: []struct {
			Stream map[string]string `json:"stream"`
			Values [][2]string       `json:"values"`
		}{
			{Stream: lbls, Values: [][2]string{{ts, line}}},
		},
	}

	b, _ := json.Marshal(payload)
	req, err := http.NewRequest("POST", lokiURL, bytes.NewReader(b))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	_, _ = lokiClient.Do(req) // fire-and-forget
}

// MustHostname returns the current hostname or "unknown" on error.
func MustHostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}

func logEnabled() bool {
	if flag.Lookup("test.v") != nil || flag.Lookup("test.run") != nil || flag.Lookup("test.bench") != nil {
		return false
	}
	return true
}

// ------------- request lifecycle events -------------

// LogRequestQueued emits an admission-time event: a request was accepted
// onto the cache or network queue, or coalesced onto an in-flight one.
func LogRequestQueued(method, url, tag string, coalesced bool) {
	labels := map[string]string{
		"method":    method,
		"url":       url,
		"tag":       tag,
		"host":      MustHostname(),
		"coalesced": strconv.FormatBool(coalesced),
	}
	line := fmt.Sprintf("QUEUED method=%s url=%s tag=%s coalesced=%t", method, url, tag, coalesced)
	Emit("debug", "jus", labels, line)
}

// LogCacheOutcome emits a cache lookup's outcome: "fresh", "stale",
// "expired", or "miss".
func LogCacheOutcome(method, url, outcome string) {
	labels := map[string]string{
		"method": method,
		"url":    url,
		"cache":  outcome,
		"host":   MustHostname(),
	}
	line := fmt.Sprintf("CACHE method=%s url=%s outcome=%s", method, url, outcome)
	Emit("info", "jus", labels, line)
}

// LogNetworkAttempt emits one PerformRequest attempt: the resulting status
// code (or -1 on transport failure) and elapsed time.
func LogNetworkAttempt(method, url string, attempt int, status int, dur time.Duration, err error) {
	labels := map[string]string{
		"method":  method,
		"url":     url,
		"attempt": strconv.Itoa(attempt),
		"status":  strconv.Itoa(status),
		"host":    MustHostname(),
	}
	line := fmt.Sprintf("NET method=%s url=%s attempt=%d status=%d dur=%s err=%v", method, url, attempt, status, dur, err)
	level := "info"
	if err != nil {
		level = "error"
	}
	Emit(level, "jus", labels, line)
}

// LogRetry emits a retry decision for a given error kind.
func LogRetry(method, url, kind string, nextTimeout time.Duration, retryCount int) {
	labels := map[string]string{
		"method": method,
		"url":    url,
		"kind":   kind,
		"host":   MustHostname(),
	}
	line := fmt.Sprintf("RETRY method=%s url=%s kind=%s retry=%d next_timeout=%s", method, url, kind, retryCount, nextTimeout)
	Emit("info", "jus", labels, line)
}

// LogAuthRefresh emits an authenticator refresh attempt's result.
func LogAuthRefresh(method, url string, ok bool, err error) {
	labels := map[string]string{
		"method": method,
		"url":    url,
		"result": "ok",
		"host":   MustHostname(),
	}
	if !ok {
		labels["result"] = "failed"
	}
	line := fmt.Sprintf("AUTH_REFRESH method=%s url=%s ok=%t err=%v", method, url, ok, err)
	level := "info"
	if !ok {
		level = "error"
	}
	Emit(level, "jus", labels, line)
}

// LogDelivery emits a terminal delivery event: "success", "error", or
// "canceled".
func LogDelivery(method, url, outcome string) {
	labels := map[string]string{
		"method":  method,
		"url":     url,
		"outcome": outcome,
		"host":    MustHostname(),
	}
	line := fmt.Sprintf("DELIVER method=%s url=%s outcome=%s", method, url, outcome)
	Emit("debug", "jus", labels, line)
}

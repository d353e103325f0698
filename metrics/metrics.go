// Package metrics exposes Prometheus counters for the request pipeline and session.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes.
const (
	RefreshSuccess        = "success"
	RefreshFailed         = "failed"
	RefreshNoRefreshToken = "no_refresh_token"
	RefreshDiscarded      = "discarded"
)

// Retry reasons.
const (
	RetryAfterRefresh = "refreshed"
	RetryStaleToken   = "stale_token"
)

// Recorder is what the client and session report to.
type Recorder interface {
	RecordRequest(method string, statusCode int, latency time.Duration)
	RecordRefresh(outcome string)
	RecordRetry(reason string)
	RecordSessionEvent(event string)
}

// Nop discards everything.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordRequest(string, int, time.Duration) {}
func (Nop) RecordRefresh(string)                     {}
func (Nop) RecordRetry(string)                       {}
func (Nop) RecordSessionEvent(string)                {}

// Collector records to Prometheus.
type Collector struct {
	requests       *prometheus.CounterVec
	requestLatency prometheus.Histogram
	refreshes      *prometheus.CounterVec
	retries        *prometheus.CounterVec
	sessionEvents  *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spendora_client_requests_total",
			Help: "API requests by method and status code (0 = no response).",
		}, []string{"method", "status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spendora_client_request_latency_seconds",
			Help:    "API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spendora_client_token_refresh_total",
			Help: "Refresh attempts by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spendora_client_request_retries_total",
			Help: "Requests re-issued after a 401, by reason.",
		}, []string{"reason"}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spendora_client_session_events_total",
			Help: "Session state transitions and flows.",
		}, []string{"event"}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.refreshes,
		c.retries,
		c.sessionEvents,
	)
	return c
}

func (c *Collector) RecordRequest(method string, statusCode int, latency time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.requestLatency.Observe(latency.Seconds())
}

func (c *Collector) RecordRefresh(outcome string) {
	c.refreshes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRetry(reason string) {
	c.retries.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordSessionEvent(event string) {
	c.sessionEvents.WithLabelValues(event).Inc()
}

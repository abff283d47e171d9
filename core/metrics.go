package core

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by the executor.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// RequestsTotal counts attempts per method and status ("error" when no response arrived).
	RequestsTotal *prometheus.CounterVec
	// RateLimitRetries counts backoff waits triggered by 429 responses.
	RateLimitRetries prometheus.Counter
	// RequestDuration observes attempt latency per method.
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airtable_requests_total",
				Help: "Total number of HTTP attempts sent to the Airtable API",
			},
			[]string{"method", "status"},
		),
		RateLimitRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "airtable_rate_limit_retries_total",
				Help: "Total number of retries caused by rate limiting",
			},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "airtable_request_duration_seconds",
				Help:    "HTTP attempt latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.RequestsTotal, m.RateLimitRetries, m.RequestDuration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observeAttempt(method string, statusCode int, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.RateLimitRetries.Inc()
}

package observability

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for auth operations.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeLimited  = "rate_limited"
	OutcomeDegraded = "degraded"
)

// Metrics groups the Prometheus collectors exported by the service.
type Metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	authOps     *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
}

// NewMetrics registers collectors with reg (prometheus.DefaultRegisterer when nil).
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests partitioned by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "auth",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Rendered error responses partitioned by route, method and error code.",
		}, []string{"route", "method", "code"}),
		authOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Session lifecycle operations partitioned by operation and outcome.",
		}, []string{"operation", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Attempts rejected by the rate limiter partitioned by operation.",
		}, []string{"operation"}),
	}

	var err error
	if m.requests, err = registerCounterVec(reg, m.requests); err != nil {
		return nil, err
	}
	if m.errors, err = registerCounterVec(reg, m.errors); err != nil {
		return nil, err
	}
	if m.authOps, err = registerCounterVec(reg, m.authOps); err != nil {
		return nil, err
	}
	if m.rateLimited, err = registerCounterVec(reg, m.rateLimited); err != nil {
		return nil, err
	}
	if err := reg.Register(m.duration); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register duration collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, fmt.Errorf("existing duration collector has unexpected type %T", already.ExistingCollector)
		}
		m.duration = existing
	}
	return m, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register counter: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing counter has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return c, nil
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordAuthOutcome counts a lifecycle operation result.
func (m *Metrics) RecordAuthOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.authOps.WithLabelValues(operation, outcome).Inc()
}

// RecordRateLimited counts a rejected attempt.
func (m *Metrics) RecordRateLimited(operation string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(operation).Inc()
}

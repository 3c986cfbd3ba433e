package welcome

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "welcome_"

	resultSuccess = "success"
	resultError   = "error"
)

// metrics holds the client's Prometheus collectors. A nil *metrics is valid
// and records nothing.
type metrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	refreshes *prometheus.CounterVec
}

// WithMetrics registers request and token refresh metrics with reg.
// Several clients may share one registerer; collectors already registered
// there are reused.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		if reg == nil {
			return
		}
		c.metrics = newMetrics(reg)
	}
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "requests_total",
				Help: "Total Netatmo API requests by endpoint and result",
			},
			[]string{"endpoint", "result"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "request_duration_seconds",
				Help:    "Netatmo API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "token_refreshes_total",
				Help: "Total access token refreshes by result",
			},
			[]string{"result"},
		),
	}

	m.requests = register(reg, m.requests)
	m.latency = register(reg, m.latency)
	m.refreshes = register(reg, m.refreshes)
	return m
}

// register adds c to reg, returning the collector already registered under
// the same descriptor if there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *metrics) observeRequest(endpoint, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, result).Inc()
	m.latency.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *metrics) observeRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus collectors for the nursery, the
// gardener, and the HTTP server. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zidariuandrei/tane/pkg/types"
)

const namespace = "tane"

// Outcomes of one grow attempt.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeRequeued  = "requeued"
)

// Metrics holds the collectors.
type Metrics struct {
	pollTicks    prometheus.Counter
	claims       prometheus.Counter
	inFlight     prometheus.Gauge
	growOutcomes *prometheus.CounterVec
	growDuration prometheus.Histogram
	seeds        *prometheus.GaugeVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pollTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nursery",
			Name:      "ticks_total",
			Help:      "Poll ticks executed.",
		}),
		claims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nursery",
			Name:      "claims_total",
			Help:      "Pending seeds claimed for growing.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "nursery",
			Name:      "in_flight",
			Help:      "Grow attempts currently running.",
		}),
		growOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gardener",
			Name:      "grows_total",
			Help:      "Grow attempts by outcome.",
		}, []string{"outcome"}),
		growDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gardener",
			Name:      "grow_duration_seconds",
			Help:      "Duration of grow attempts in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		seeds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "seeds",
			Help:      "Seeds by status.",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.pollTicks, m.claims, m.inFlight, m.growOutcomes,
			m.growDuration, m.seeds, m.httpRequests, m.httpDuration)
	}
	return m
}

// Tick records one poll tick.
func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.pollTicks.Inc()
}

// Claimed records a claimed seed.
func (m *Metrics) Claimed() {
	if m == nil {
		return
	}
	m.claims.Inc()
}

// SetInFlight records the number of running grow attempts.
func (m *Metrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.inFlight.Set(float64(n))
}

// GrowFinished records the outcome and duration of one attempt.
func (m *Metrics) GrowFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.growOutcomes.WithLabelValues(outcome).Inc()
	m.growDuration.Observe(d.Seconds())
}

// SetSeedCounts publishes the number of seeds in each status.
func (m *Metrics) SetSeedCounts(counts map[types.Status]int) {
	if m == nil {
		return
	}
	for status, n := range counts {
		m.seeds.WithLabelValues(string(status)).Set(float64(n))
	}
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	m.httpDuration.WithLabelValues(method, path, statusLabel).Observe(d.Seconds())
}

// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors recorded by the store and the service.
type Metrics struct {
	registry *prometheus.Registry

	failovers       *prometheus.CounterVec
	storeOps        *prometheus.HistogramVec
	cascadeFailures prometheus.Counter
	pushDeliveries  *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		failovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gearguard_store_failovers_total",
			Help: "Operations served by the fallback store because the primary was unreachable.",
		}, []string{"operation"}),
		storeOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gearguard_store_operation_seconds",
			Help:    "Latency of store operations by backend and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "operation", "outcome"}),
		cascadeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gearguard_scrap_cascade_failures_total",
			Help: "Scrap status updates whose equipment write failed.",
		}),
		pushDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gearguard_push_deliveries_total",
			Help: "Web push deliveries by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.failovers,
		m.storeOps,
		m.cascadeFailures,
		m.pushDeliveries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Failover counts one operation rerouted to the fallback.
func (m *Metrics) Failover(operation string) {
	if m == nil {
		return
	}
	m.failovers.WithLabelValues(operation).Inc()
}

// ObserveStore records one backend call.
func (m *Metrics) ObserveStore(backend, operation string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	m.storeOps.WithLabelValues(backend, operation, outcome).Observe(d.Seconds())
}

// CascadeFailed counts a Scrap cascade that left the equipment unchanged.
func (m *Metrics) CascadeFailed() {
	if m == nil {
		return
	}
	m.cascadeFailures.Inc()
}

// PushDelivered counts a web push attempt.
func (m *Metrics) PushDelivered(success bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	m.pushDeliveries.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

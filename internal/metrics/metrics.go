// Package metrics exposes Prometheus counters for response delivery.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery modes.
const (
	ModeDebug = "debug"
	ModeAPI   = "api"
)

// DeliveryMetrics counts responses buffered or posted by the response layer.
type DeliveryMetrics struct {
	deliveries *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewDeliveryMetrics registers the delivery collectors on reg
// (prometheus.DefaultRegisterer when nil).
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	m := &DeliveryMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nestor",
			Subsystem: "response",
			Name:      "deliveries_total",
			Help:      "Responses delivered, by mode, kind and outcome",
		}, []string{"mode", "kind", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nestor",
			Subsystem: "response",
			Name:      "delivery_seconds",
			Help:      "Latency of posting a response to the messaging API",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.deliveries, m.latency)
	return m
}

// ObserveDelivery records one delivery attempt.
func (m *DeliveryMetrics) ObserveDelivery(mode, kind, status string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(mode, kind, status).Inc()
}

// ObserveLatency records how long an API post took.
func (m *DeliveryMetrics) ObserveLatency(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(kind).Observe(d.Seconds())
}

package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tyrowin/gorelay/internal/relay"
)

const namespace = "relay"

// Metrics holds Prometheus metrics for relay connections and broadcasts.
// A nil *Metrics records nothing.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	MessagesRelayed   prometheus.Counter
	SendAttempts      *prometheus.CounterVec
	RateLimited       prometheus.Counter
}

// NewMetricsRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// MetricsHandler returns an http.Handler that serves the metrics in reg.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// NewMetrics creates and registers relay metrics on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of open relay connections.",
		}),
		MessagesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Total number of messages appended to the log and broadcast.",
		}),
		SendAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_attempts_total",
			Help:      "Delivery attempts per broadcast recipient, by result.",
		}, []string{"result"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rate_limited_total",
			Help:      "Inbound messages dropped by the per-connection rate limiter.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.MessagesRelayed, m.SendAttempts, m.RateLimited)
	return m
}

func (m *Metrics) connectionOpened() {
	if m != nil {
		m.ActiveConnections.Inc()
	}
}

func (m *Metrics) connectionClosed() {
	if m != nil {
		m.ActiveConnections.Dec()
	}
}

func (m *Metrics) rateLimited() {
	if m != nil {
		m.RateLimited.Inc()
	}
}

func (m *Metrics) observeBroadcast(results []relay.SendResult) {
	if m == nil {
		return
	}
	m.MessagesRelayed.Inc()
	failed := relay.Failed(results)
	m.SendAttempts.WithLabelValues("ok").Add(float64(len(results) - failed))
	m.SendAttempts.WithLabelValues("failed").Add(float64(failed))
}

package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultCreated  = "created"
	ResultExisting = "existing"
	ResultRejected = "rejected"
)

// Metrics holds the service counters. A nil *Metrics is valid and records
// nothing, so components never need to check whether metrics are enabled.
type Metrics struct {
	registry   *prometheus.Registry
	deliveries *prometheus.CounterVec
	events     *prometheus.CounterVec
	upserts    *prometheus.CounterVec
	sends      *prometheus.CounterVec
}

// NewMetrics registers the counters on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shoplink_webhook_deliveries_total",
			Help: "Webhook deliveries received, by result.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shoplink_events_total",
			Help: "Normalized messaging events, by kind.",
		}, []string{"kind"}),
		upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shoplink_user_upserts_total",
			Help: "Identity store upserts, by result.",
		}, []string{"result"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shoplink_messages_sent_total",
			Help: "Send API calls, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.deliveries, m.events, m.upserts, m.sends)
	return m
}

func (m *Metrics) DeliveryReceived(result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result).Inc()
}

func (m *Metrics) EventNormalized(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

func (m *Metrics) UserUpserted(result string) {
	if m == nil {
		return
	}
	m.upserts.WithLabelValues(result).Inc()
}

func (m *Metrics) MessageSent(result string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(result).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "number"

const (
	OutcomeFulfilledNew      = "fulfilled_new"
	OutcomeFulfilledExisting = "fulfilled_existing"
	OutcomeRejected          = "rejected"
	OutcomeError             = "error"

	ActivationOK        = "ok"
	ActivationFailed    = "failed"
	ActivationDeferred  = "deferred"
	ActivationRetried   = "retried"
	ActivationAbandoned = "abandoned"
)

// Metrics holds the orchestrator's instruments. A nil *Metrics is a no-op.
type Metrics struct {
	provisions  *prometheus.CounterVec
	activations *prometheus.CounterVec
	events      *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		provisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provision_total",
			Help:      "Provisioning requests by terminal outcome.",
		}, []string{"outcome"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activation_total",
			Help:      "Telecom activation attempts by result.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Domain events observed on the bus.",
		}, []string{"type"}),
		gatherer: registry,
	}
	registry.MustRegister(m.provisions, m.activations, m.events)
	return m
}

func (m *Metrics) ProvisionOutcome(outcome string) {
	if m == nil {
		return
	}
	m.provisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ActivationResult(result string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(result).Inc()
}

func (m *Metrics) EventObserved(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

func (m *Metrics) Provisions() *prometheus.CounterVec {
	return m.provisions
}

func (m *Metrics) Activations() *prometheus.CounterVec {
	return m.activations
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

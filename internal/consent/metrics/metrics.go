package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for consent operations.
type Metrics struct {
	ConsentsCreated *prometheus.CounterVec
	ConsentsUpdated *prometheus.CounterVec
	ConsentsRevoked prometheus.Counter

	// Performance metrics
	StoreOperationLatency *prometheus.HistogramVec
}

// New registers and returns consent metrics collectors on reg, or on the
// default registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ConsentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consents_created_total",
			Help: "Total number of consents created, labeled by permission",
		}, []string{"permission"}),
		ConsentsUpdated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consents_updated_total",
			Help: "Total number of consent updates, labeled by resulting status",
		}, []string{"status"}),
		ConsentsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "consents_revoked_total",
			Help: "Total number of consents revoked",
		}),
		StoreOperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consents_store_operation_latency_seconds",
			Help:    "Latency of consent store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCreated(permission string) {
	m.ConsentsCreated.WithLabelValues(permission).Inc()
}

func (m *Metrics) IncrementUpdated(status string) {
	m.ConsentsUpdated.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementRevoked() {
	m.ConsentsRevoked.Inc()
}

func (m *Metrics) ObserveStoreOperation(operation string, durationSeconds float64) {
	m.StoreOperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}

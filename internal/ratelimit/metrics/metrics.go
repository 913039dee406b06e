package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Admission outcomes used as the "outcome" label.
const (
	OutcomeAdmitted = "admitted"
	OutcomeRejected = "rejected"
	OutcomeFailOpen = "fail_open"
)

type Metrics struct {
	AdmissionDecisionsTotal     *prometheus.CounterVec
	AdmissionStoreErrorsTotal   prometheus.Counter
	AdmissionCheckDuration      prometheus.Histogram
	CounterTrackedKeys          prometheus.Gauge
	CounterSweepEvictedTotal    prometheus.Counter
	CounterSweepRunsTotal       *prometheus.CounterVec
	CounterSweepDurationSeconds prometheus.Histogram
}

// New registers the rate limit collectors on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		AdmissionDecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consents_ratelimit_decisions_total",
			Help: "Total number of admission decisions by outcome",
		}, []string{"outcome"}),
		AdmissionStoreErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "consents_ratelimit_store_errors_total",
			Help: "Total number of counter store failures that were admitted fail-open",
		}),
		AdmissionCheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "consents_ratelimit_check_duration_seconds",
			Help:    "Latency of the counter increment performed per request",
			Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
		}),
		CounterTrackedKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "consents_ratelimit_tracked_keys",
			Help: "Number of client counters physically held after the last sweep",
		}),
		CounterSweepEvictedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "consents_ratelimit_sweep_evicted_total",
			Help: "Total number of expired counters removed by the sweeper",
		}),
		CounterSweepRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consents_ratelimit_sweep_runs_total",
			Help: "Total number of sweeper runs",
		}, []string{"status"}),
		CounterSweepDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "consents_ratelimit_sweep_duration_seconds",
			Help: "Duration of sweeper runs in seconds",
		}),
	}
}

func (m *Metrics) IncrementDecision(outcome string) {
	m.AdmissionDecisionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	m.AdmissionStoreErrorsTotal.Inc()
}

func (m *Metrics) ObserveCheckDuration(durationSeconds float64) {
	m.AdmissionCheckDuration.Observe(durationSeconds)
}

func (m *Metrics) SetTrackedKeys(count int) {
	m.CounterTrackedKeys.Set(float64(count))
}

func (m *Metrics) IncrementSweepRuns(status string) {
	m.CounterSweepRunsTotal.WithLabelValues(status).Inc()
}
func (m *Metrics) ObserveSweepDuration(durationSeconds float64) {
	m.CounterSweepDurationSeconds.Observe(durationSeconds)
}

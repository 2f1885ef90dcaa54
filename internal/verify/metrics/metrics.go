package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the verification flow. Construct
// once in main; services treat a nil *Metrics as "metrics disabled".
type Metrics struct {
	VerificationsTotal *prometheus.CounterVec
	CheckDuration      *prometheus.HistogramVec
	RevocationDegraded prometheus.Counter
}

// New creates and registers all verification metrics on the default
// registry.
func New() *Metrics {
	return &Metrics{
		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pa_gateway_verifications_total",
			Help: "Passive authentication runs by terminal status",
		}, []string{"status"}),
		CheckDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pa_gateway_check_duration_seconds",
			Help:    "Latency of individual verification checks",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"check"}),
		RevocationDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pa_gateway_revocation_degraded_total",
			Help: "Verifications where revocation data was unavailable or stale",
		}),
	}
}

// ObserveVerification records a completed run.
func (m *Metrics) ObserveVerification(status string) {
	if m == nil {
		return
	}
	m.VerificationsTotal.WithLabelValues(status).Inc()
}

// ObserveCheck records the latency of a single verification check.
func (m *Metrics) ObserveCheck(check string, d time.Duration) {
	if m == nil {
		return
	}
	m.CheckDuration.WithLabelValues(check).Observe(d.Seconds())
}

// IncRevocationDegraded counts a fail-open revocation outcome.
func (m *Metrics) IncRevocationDegraded() {
	if m == nil {
		return
	}
	m.RevocationDegraded.Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Services receive
// a *Metrics via options and increment through the nil-safe helpers so unit
// tests can run without a registry.
type Metrics struct {
	AuthSuccess         prometheus.Counter
	AuthFailure         prometheus.Counter
	CasesCreated        prometheus.Counter
	EvidenceUploaded    prometheus.Counter
	Verifications       *prometheus.CounterVec
	IntegrityViolations prometheus.Counter
	AlertsRaised        *prometheus.CounterVec
	CommandDuration     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AuthSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_auth_success_total",
			Help: "Total number of successful officer authentications",
		}),
		AuthFailure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_auth_failure_total",
			Help: "Total number of failed officer authentications",
		}),
		CasesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_cases_created_total",
			Help: "Total number of cases created",
		}),
		EvidenceUploaded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_evidence_uploaded_total",
			Help: "Total number of evidence items ingested",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_integrity_verifications_total",
			Help: "Total integrity verifications by outcome",
		}, []string{"outcome"}),
		IntegrityViolations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_integrity_violations_total",
			Help: "Total integrity violations detected",
		}),
		AlertsRaised: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_alerts_raised_total",
			Help: "Total alerts raised by type",
		}, []string{"type"}),
		CommandDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custodia_command_duration_seconds",
			Help:    "Command dispatch latency by command and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"command", "status"}),
	}
}

// IncVerification records a verification outcome ("verified" or "violation").
func (m *Metrics) IncVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

// IncAlert records an alert raise by alert type.
func (m *Metrics) IncAlert(alertType string) {
	if m == nil {
		return
	}
	m.AlertsRaised.WithLabelValues(alertType).Inc()
}

// ObserveCommand records a dispatch duration.
func (m *Metrics) ObserveCommand(command, status string, seconds float64) {
	if m == nil {
		return
	}
	m.CommandDuration.WithLabelValues(command, status).Observe(seconds)
}

// Package metrics holds the Prometheus metrics of the registration API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Submissions  *prometheus.CounterVec
	AdminDenied  prometheus.Counter
	AdminAllowed prometheus.Counter
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_submissions_total",
			Help: "Registration submissions by outcome",
		}, []string{"outcome"}),
		AdminDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "registration_admin_denied_total",
			Help: "Listing requests rejected for a missing or wrong admin key",
		}),
		AdminAllowed: factory.NewCounter(prometheus.CounterOpts{
			Name: "registration_admin_allowed_total",
			Help: "Listing requests that presented the admin key",
		}),
	}
}

// ObserveRegistration counts one submission with the given outcome.
func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

// ObserveAdmin counts one admin-gated request.
func (m *Metrics) ObserveAdmin(allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.AdminAllowed.Inc()
		return
	}
	m.AdminDenied.Inc()
}

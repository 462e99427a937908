package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MailMetrics counts transactional mail deliveries by kind.
type MailMetrics struct {
	sent    *prometheus.CounterVec
	failure *prometheus.CounterVec
}

// NewMailMetrics registers the mail metrics on the provided registerer.
func NewMailMetrics(reg prometheus.Registerer) *MailMetrics {
	if reg == nil {
		return &MailMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mail_sent_total",
		Help: "Successfully delivered transactional emails.",
	}, []string{"kind"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mail_failure_total",
		Help: "Failed transactional email deliveries.",
	}, []string{"kind"})
	reg.MustRegister(sent, failure)
	return &MailMetrics{
		sent:    sent,
		failure: failure,
	}
}

// IncSent increments the delivered counter for the named mail kind.
func (m *MailMetrics) IncSent(kind string) {
	if m == nil || m.sent == nil {
		return
	}
	m.sent.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncFailure increments the failure counter for the named mail kind.
func (m *MailMetrics) IncFailure(kind string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(kind)).Inc()
}

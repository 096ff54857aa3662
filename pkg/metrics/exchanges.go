package metrics

import "github.com/prometheus/client_golang/prometheus"

// ExchangeMetrics counts lifecycle events of exchanges.
type ExchangeMetrics struct {
	created     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	feedback    *prometheus.CounterVec
}

// NewExchangeMetrics registers exchange lifecycle metrics on the provided registerer.
func NewExchangeMetrics(reg prometheus.Registerer) *ExchangeMetrics {
	if reg == nil {
		return &ExchangeMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exchanges_created_total",
		Help:      "Exchange requests created, by type.",
	}, []string{"type"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exchange_transitions_total",
		Help:      "Applied exchange status transitions.",
	}, []string{"from", "to"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exchange_transitions_refused_total",
		Help:      "Refused exchange status transitions, by error code.",
	}, []string{"code"})
	feedback := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exchange_feedback_total",
		Help:      "Feedback submissions, by role.",
	}, []string{"role"})
	reg.MustRegister(created, transitions, rejected, feedback)
	return &ExchangeMetrics{
		created:     created,
		transitions: transitions,
		rejected:    rejected,
		feedback:    feedback,
	}
}

func (m *ExchangeMetrics) IncCreated(exchangeType string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(exchangeType).Inc()
}

func (m *ExchangeMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *ExchangeMetrics) IncRefused(code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(code).Inc()
}

func (m *ExchangeMetrics) IncFeedback(role string) {
	if m == nil || m.feedback == nil {
		return
	}
	m.feedback.WithLabelValues(role).Inc()
}

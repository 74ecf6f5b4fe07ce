package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the authentication flow. All observer
// methods are nil-safe so library users who do not care about metrics can
// pass a nil *Metrics.
type Metrics struct {
	// Token exchange latencies by grant type
	ExchangeLatency *prometheus.HistogramVec

	// Token exchange outcomes by grant type and result
	ExchangeOutcome *prometheus.CounterVec

	// Login milestones reached, by state name
	LoginMilestone *prometheus.CounterVec
}

// New creates a Metrics instance with all authentication metrics registered
// on the default registry.
func New() *Metrics {
	return &Metrics{
		ExchangeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campusauth_token_exchange_duration_seconds",
			Help:    "Duration of OAuth2 token exchange requests by grant type",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"grant_type"}),

		ExchangeOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "campusauth_token_exchanges_total",
			Help: "Total token exchange attempts by grant type and outcome",
		}, []string{"grant_type", "outcome"}), // outcome: "success", "http_error", "decode_error", "transport_error"

		LoginMilestone: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "campusauth_login_milestones_total",
			Help: "Login states committed by the authenticator",
		}, []string{"state"}),
	}
}

// ObserveExchange records the duration and outcome of one token exchange.
func (m *Metrics) ObserveExchange(grantType, outcome string, d time.Duration) {
	if m != nil {
		m.ExchangeLatency.WithLabelValues(grantType).Observe(d.Seconds())
		m.ExchangeOutcome.WithLabelValues(grantType, outcome).Inc()
	}
}

// IncrementMilestone records a committed login state.
func (m *Metrics) IncrementMilestone(state string) {
	if m != nil {
		m.LoginMilestone.WithLabelValues(state).Inc()
	}
}

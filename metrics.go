package identity

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the identity counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	signupOutcomes *prometheus.CounterVec
	logins         *prometheus.CounterVec
	bridgeRewrites *prometheus.CounterVec
	gatewayState   prometheus.Gauge
	sessionErrors  prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		signupOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_signup_outcomes_total",
			Help: "Signup attempts by outcome code.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_logins_total",
			Help: "Login attempts by strategy and result.",
		}, []string{"strategy", "result"}),
		bridgeRewrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_bridge_rewrites_total",
			Help: "Header-to-cookie session rewrites by mode.",
		}, []string{"mode"}),
		gatewayState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "identity_gateway_state",
			Help: "Guild gateway lifecycle state (0 uninitialized, 1 connecting, 2 ready).",
		}),
		sessionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "identity_session_store_errors_total",
			Help: "Session store operation failures.",
		}),
	}

	m.registry.MustRegister(
		m.signupOutcomes,
		m.logins,
		m.bridgeRewrites,
		m.gatewayState,
		m.sessionErrors,
	)

	return m
}

func (m *Metrics) RecordSignupOutcome(outcome string) {
	m.signupOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordLogin(strategy, result string) {
	m.logins.WithLabelValues(strategy, result).Inc()
}

func (m *Metrics) RecordBridgeRewrite(mode string) {
	m.bridgeRewrites.WithLabelValues(mode).Inc()
}

func (m *Metrics) RecordGatewayState(state int) {
	m.gatewayState.Set(float64(state))
}

func (m *Metrics) RecordSessionError() {
	m.sessionErrors.Inc()
}

// Handler returns the scrape endpoint for this collector's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeVerified = "verified"

	GatewayOutcomeSuccess = "success"
	GatewayOutcomeFailure = "failure"
)

// PaywallMetrics records verification, access and gateway outcomes.
type PaywallMetrics struct {
	verifications   *prometheus.CounterVec
	verifyDuration  *prometheus.HistogramVec
	accessDecisions *prometheus.CounterVec
	gatewayAttempts *prometheus.CounterVec
}

// NewPaywallMetrics registers the paywall metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPaywallMetrics(reg prometheus.Registerer) *PaywallMetrics {
	if reg == nil {
		return &PaywallMetrics{}
	}
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paywall_payment_verifications_total",
		Help: "Payment verifications by outcome code.",
	}, []string{"outcome"})
	verifyDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paywall_payment_verification_duration_seconds",
		Help:    "Duration of payment verifications in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	accessDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paywall_access_decisions_total",
		Help: "Access decisions by reason.",
	}, []string{"reason"})
	gatewayAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paywall_gateway_attempts_total",
		Help: "Metadata gateway attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(verifications, verifyDuration, accessDecisions, gatewayAttempts)
	return &PaywallMetrics{
		verifications:   verifications,
		verifyDuration:  verifyDuration,
		accessDecisions: accessDecisions,
		gatewayAttempts: gatewayAttempts,
	}
}

// ObserveVerification counts one verification and its duration.
func (m *PaywallMetrics) ObserveVerification(outcome string, duration time.Duration) {
	if m == nil || m.verifications == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.verifications.WithLabelValues(outcome).Inc()
	m.verifyDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncAccessDecision counts one access decision.
func (m *PaywallMetrics) IncAccessDecision(reason string) {
	if m == nil || m.accessDecisions == nil {
		return
	}
	m.accessDecisions.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncGatewayAttempt counts one gateway fetch.
func (m *PaywallMetrics) IncGatewayAttempt(outcome string) {
	if m == nil || m.gatewayAttempts == nil {
		return
	}
	m.gatewayAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// Package obs holds the process-level observability surface. Metrics are
// optional everywhere they are consumed: a nil *Metrics is a no-op, so unit
// tests and library callers never have to register collectors.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	authorizationCodesIssued prometheus.Counter
	tokensIssued             *prometheus.CounterVec
	authenticationFailures   prometheus.Counter
	housekeepingRuns         prometheus.Counter
}

// Grant labels for the tokens_issued counter.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
)

// NewMetrics registers the identity collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authorizationCodesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "authorization_codes_issued_total",
			Help:      "Authorization codes handed out to applications.",
		}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "tokens_issued_total",
			Help:      "Token pairs issued, labelled by grant.",
		}, []string{"grant"}),
		authenticationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "authentication_failures_total",
			Help:      "Credential checks that did not produce a user.",
		}),
		housekeepingRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "housekeeping_runs_total",
			Help:      "Completed expired-grant sweep cycles.",
		}),
	}

	reg.MustRegister(
		m.authorizationCodesIssued,
		m.tokensIssued,
		m.authenticationFailures,
		m.housekeepingRuns,
	)
	return m
}

func (m *Metrics) AuthorizationCodeIssued() {
	if m == nil {
		return
	}
	m.authorizationCodesIssued.Inc()
}

func (m *Metrics) TokensIssued(grant string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(grant).Inc()
}

func (m *Metrics) AuthenticationFailed() {
	if m == nil {
		return
	}
	m.authenticationFailures.Inc()
}

func (m *Metrics) HousekeepingRan() {
	if m == nil {
		return
	}
	m.housekeepingRuns.Inc()
}

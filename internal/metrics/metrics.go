// Package metrics defines Prometheus metrics for CSE362 Core.
//
// Metrics are registered with a package-level Registry rather than the
// global default, and served by Handler on /metrics.
//
// Metric naming follows Prometheus conventions:
//   - cse362_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login and validation outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeMalformed = "malformed"
	OutcomeExpired   = "expired"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Registry holds every CSE362 collector plus the Go runtime and process collectors.
var Registry = prometheus.NewRegistry()

var (
	// LoginsTotal counts login attempts by outcome.
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cse362_logins_total",
			Help: "Total login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// SessionValidationsTotal counts session token validations by outcome.
	SessionValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cse362_session_validations_total",
			Help: "Total session token validations by outcome.",
		},
		[]string{"outcome"},
	)

	// SessionsRevokedTotal counts sessions removed by logout, password change or force-logout.
	SessionsRevokedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cse362_sessions_revoked_total",
			Help: "Total sessions explicitly revoked.",
		},
	)

	// SessionsSweptTotal counts expired sessions removed by the periodic sweep.
	SessionsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cse362_sessions_swept_total",
			Help: "Total expired sessions removed by the sweeper.",
		},
	)

	// PasswordHashSeconds is a histogram of Argon2id hash and verify durations.
	PasswordHashSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cse362_password_hash_seconds",
			Help:    "Duration of password hash and verify operations in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		LoginsTotal,
		SessionValidationsTotal,
		SessionsRevokedTotal,
		SessionsSweptTotal,
		PasswordHashSeconds,
	)
}

// Handler serves the Prometheus exposition format for Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordLogin records a single login attempt.
func RecordLogin(outcome string) {
	LoginsTotal.WithLabelValues(outcome).Inc()
}

// RecordValidation records a single session validation.
func RecordValidation(outcome string) {
	SessionValidationsTotal.WithLabelValues(outcome).Inc()
}

// RecordRevoked records n revoked sessions.
func RecordRevoked(n int64) {
	if n > 0 {
		SessionsRevokedTotal.Add(float64(n))
	}
}

// RecordSwept records n swept sessions.
func RecordSwept(n int64) {
	if n > 0 {
		SessionsSweptTotal.Add(float64(n))
	}
}

// ObservePasswordHash records the duration of a hash or verify that started at start.
func ObservePasswordHash(start time.Time) {
	PasswordHashSeconds.Observe(time.Since(start).Seconds())
}

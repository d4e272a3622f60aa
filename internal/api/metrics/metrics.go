// Package metrics defines the Prometheus metrics of the back-office auth API.
// It is the single source of truth for metric names, labels, and help strings.
//
// Metrics register with the default registry at package init through promauto,
// so importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "backoffice"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// ── Session metrics ───────────────────────────────────────────────────────────

// LoginsTotal counts login attempts that reached the session service.
// Labels:
//   - role: "EMPLOYEE", "CLIENT", or "unknown" when the request carried none
//   - result: "success" or a failure reason (e.g. "bad_credentials", "locked")
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by role and result.",
	},
	[]string{"role", "result"},
)

// RefreshesTotal counts refresh-token exchanges.
// Label:
//   - result: "success" or a failure reason (e.g. "invalid_or_expired")
var RefreshesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Total number of refresh-token exchanges, by result.",
	},
	[]string{"result"},
)

// PasswordResetsTotal counts the two steps of the reset flow.
// Labels:
//   - stage: "requested" (forgot-password) or "completed" (change-password)
//   - result: "success" or a failure reason
var PasswordResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Total number of password reset requests and completions, by result.",
	},
	[]string{"stage", "result"},
)

// RateLimitDeniedTotal counts login requests rejected by the per-IP limiter.
var RateLimitDeniedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_rate_limited_total",
		Help:      "Total number of login requests denied by the rate limiter.",
	},
)

// ── Request authentication ────────────────────────────────────────────────────

// TokenVerificationsTotal counts bearer tokens seen by the authentication filter.
// Label:
//   - result: "valid", "invalid", or "absent"
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of access-token checks by the authentication filter.",
	},
	[]string{"result"},
)

// SessionOperationDuration measures session service calls as seen by handlers.
// Label:
//   - operation: "login", "refresh", "forgot_password", "change_password", "logout"
var SessionOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_operation_duration_seconds",
		Help:      "Duration of session operations, dominated by password hashing and storage.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

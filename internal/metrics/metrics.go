// Package metrics provides Prometheus metrics for incidentdesk.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "incidentdesk"
)

// BuildInfo is always 1, labelled with the running build.
var BuildInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build metadata of the running server",
	},
	[]string{"version", "commit", "go_version"},
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts API requests by route pattern, status and
	// caller role.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total API requests by route, status and caller role",
		},
		[]string{"method", "route", "status", "role"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Authentication metrics
var (
	// AuthAttemptsTotal counts login attempts by outcome.
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Total login attempts by result",
		},
		[]string{"result"},
	)

	// AuthLockoutsTotal counts accounts locked after repeated failures.
	AuthLockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "lockouts_total",
			Help:      "Total account lockouts",
		},
	)

	// AuthzDeniedTotal counts requests refused by the role policy.
	AuthzDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "denied_total",
			Help:      "Total requests denied by the role policy",
		},
		[]string{"resource", "action"},
	)

	// SessionsIssuedTotal counts issued login sessions by backend.
	SessionsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sessions_issued_total",
			Help:      "Total sessions issued by backend",
		},
		[]string{"mode"},
	)

	// SessionsPurgedTotal counts expired stored sessions removed.
	SessionsPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sessions_purged_total",
			Help:      "Total expired sessions purged",
		},
	)
)

// Incident metrics
var (
	// IncidentMutationsTotal counts incident writes by operation and outcome.
	IncidentMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "mutations_total",
			Help:      "Total incident mutations by operation and result",
		},
		[]string{"operation", "result"},
	)

	// TimelineEventsTotal counts appended timeline events.
	TimelineEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "timeline_events_total",
			Help:      "Total timeline events appended",
		},
	)

	// ExportsTotal counts generated incident reports by format.
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "exports_total",
			Help:      "Total incident reports exported by format",
		},
		[]string{"format"},
	)
)

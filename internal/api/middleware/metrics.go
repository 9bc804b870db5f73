package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/incidentdesk/internal/metrics"
	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

const roleSlotKey contextKey = "metrics_role"

// roleSlot lets SessionAuth report the caller's role back to RequestMetrics,
// which wraps it and never sees the inner request context.
type roleSlot struct {
	role models.Role
}

func noteRole(ctx context.Context, role models.Role) {
	if slot, ok := ctx.Value(roleSlotKey).(*roleSlot); ok {
		slot.role = role
	}
}

// RequestMetrics counts requests per chi route pattern, status and caller
// role, and observes their latency. Requests without an accepted session are
// counted as "anonymous".
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		slot := &roleSlot{}
		r = r.WithContext(context.WithValue(r.Context(), roleSlotKey, slot))
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := routeLabel(r)
		metrics.HTTPRequestsTotal.WithLabelValues(
			r.Method, route, strconv.Itoa(wrapped.status), roleLabel(slot.role),
		).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeLabel returns the matched chi pattern. Unmatched paths share one
// label so scanners cannot blow up the series count.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// roleLabel turns "Incident Manager" into "incident_manager".
func roleLabel(role models.Role) string {
	if !role.Valid() {
		return "anonymous"
	}
	return strings.ReplaceAll(strings.ToLower(role.String()), " ", "_")
}

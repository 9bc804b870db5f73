package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
	"github.com/good-yellow-bee/incidentdesk/internal/session"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestRequestMetrics_LabelsRouteAndRole(t *testing.T) {
	issuer := session.NewJWTIssuer([]byte("test-secret-key-32-bytes-long!!!"), time.Hour)

	r := chi.NewRouter()
	r.Use(RequestMetrics)
	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(issuer, session.NewCookies(false), nil))
		r.Get("/metrics-test/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics-test/42", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, issuer, 1, models.RoleIncidentManager))
	r.ServeHTTP(httptest.NewRecorder(), req)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-test/43", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-test/44", nil))

	body := scrape(t)
	for _, want := range []string{
		`incidentdesk_http_requests_total{method="GET",role="incident_manager",route="/metrics-test/{id}",status="200"} 1`,
		`incidentdesk_http_requests_total{method="GET",role="anonymous",route="/metrics-test/{id}",status="401"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing series %s", want)
		}
	}
	if strings.Contains(body, `route="/metrics-test/42"`) {
		t.Error("raw path used as route label")
	}
}

func TestRoleLabel(t *testing.T) {
	tests := []struct {
		role models.Role
		want string
	}{
		{models.RoleAdministrator, "administrator"},
		{models.RoleIncidentManager, "incident_manager"},
		{models.RoleViewer, "viewer"},
		{models.RoleUnknown, "anonymous"},
	}
	for _, tt := range tests {
		if got := roleLabel(tt.role); got != tt.want {
			t.Errorf("roleLabel(%v) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestRouteLabel_Unmatched(t *testing.T) {
	if got := routeLabel(httptest.NewRequest(http.MethodGet, "/wp-admin", nil)); got != "unmatched" {
		t.Errorf("routeLabel = %q", got)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/good-yellow-bee/incidentdesk/internal/session"
)

func csrfHandler() http.Handler {
	opts := CSRFOptions{Key: []byte("0123456789abcdef0123456789abcdef")}
	return CSRF(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(CSRFToken(r)))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestCSRF_SkipsWithoutSessionCookie(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/incidents", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestCSRF_RejectsCookieRequestWithoutToken(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/incidents", strings.NewReader("{}"))
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "s"})
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "CSRF_FAILED") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCSRF_AcceptsValidToken(t *testing.T) {
	h := csrfHandler()

	getReq := httptest.NewRequest("GET", "/api/v1/auth/csrf", nil)
	getReq.AddCookie(&http.Cookie{Name: session.CookieName, Value: "s"})
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, getReq)
	token := getRec.Body.String()
	if token == "" {
		t.Fatal("no token issued")
	}

	req := httptest.NewRequest("POST", "/api/v1/incidents", strings.NewReader("{}"))
	for _, c := range getRec.Result().Cookies() {
		req.AddCookie(c)
	}
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "s"})
	req.Header.Set(CSRFHeader, token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204 (%s)", rec.Code, rec.Body.String())
	}
}

func TestCSRF_NoTokenWithoutSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/auth/csrf", nil))

	if rec.Body.Len() != 0 {
		t.Errorf("token issued without session cookie: %q", rec.Body.String())
	}
}

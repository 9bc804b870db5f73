package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/incidentdesk/internal/session"
)

const (
	// CSRFHeader carries the CSRF token on state-changing requests.
	CSRFHeader = "X-CSRF-Token"
	// CSRFCookieName is the cookie holding the masked CSRF secret.
	CSRFCookieName = "incidentdesk_csrf"
)

// CSRFOptions configures CSRF protection.
type CSRFOptions struct {
	Key            []byte
	Secure         bool
	TrustedOrigins []string
}

// CSRF returns middleware that checks a CSRF token on unsafe requests made
// with the session cookie. Requests without the cookie (Bearer clients and
// the login call) are not checked.
func CSRF(opts CSRFOptions) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		opts.Key,
		csrf.Secure(opts.Secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.CookieName(CSRFCookieName),
		csrf.RequestHeader(CSRFHeader),
		csrf.TrustedOrigins(opts.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailed)),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !session.IsRequestSecure(r) {
				r = csrf.PlaintextHTTPRequest(r)
			}
			if _, err := r.Cookie(session.CookieName); err != nil {
				r = csrf.UnsafeSkipCheck(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func csrfFailed(w http.ResponseWriter, r *http.Request) {
	zerolog.Ctx(r.Context()).Warn().
		Err(csrf.FailureReason(r)).
		Str("path", r.URL.Path).
		Msg("csrf check failed")
	jsonError(w, http.StatusForbidden, "CSRF_FAILED", "missing or invalid CSRF token")
}

// CSRFToken returns the CSRF token for the request.
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}

package session

import (
	"net/http"
	"strings"
	"time"
)

// CookieName is the name of the session cookie.
const CookieName = "incidentdesk_session"

// Cookies writes and reads the session cookie.
type Cookies struct {
	// ForceSecure marks cookies Secure even on plain HTTP requests.
	ForceSecure bool
	now         func() time.Time
}

// NewCookies creates a cookie helper.
func NewCookies(forceSecure bool) *Cookies {
	return &Cookies{ForceSecure: forceSecure, now: time.Now}
}

// Set writes token as an HttpOnly session cookie expiring with the token.
func (c *Cookies) Set(w http.ResponseWriter, r *http.Request, token *Token) {
	maxAge := int(token.ExpiresAt.Sub(c.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.ForceSecure || IsRequestSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear removes the session cookie.
func (c *Cookies) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.ForceSecure || IsRequestSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest returns the session value from the session cookie or, failing
// that, a Bearer Authorization header.
func FromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// IsRequestSecure reports whether the request arrived over TLS, directly or
// through a proxy that sets X-Forwarded-Proto.
func IsRequestSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

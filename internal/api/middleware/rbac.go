package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/incidentdesk/internal/metrics"
	"github.com/good-yellow-bee/incidentdesk/internal/policy"
)

// Authorize returns middleware that allows the request only when the
// signed-in role may perform action on resource.
func Authorize(authz *policy.Authorizer, resource policy.Resource, action policy.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetRole(r.Context())

			ok, err := authz.Allowed(role, resource, action)
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("authorization check failed")
				jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				return
			}
			if !ok {
				metrics.AuthzDeniedTotal.WithLabelValues(string(resource), string(action)).Inc()
				zerolog.Ctx(r.Context()).Info().
					Str("role", role.String()).
					Str("resource", string(resource)).
					Str("action", string(action)).
					Msg("access denied")
				jsonForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireEdit allows roles that may edit incidents.
func RequireEdit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !policy.CanEdit(GetRole(r.Context())) {
			jsonForbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

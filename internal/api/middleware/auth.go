package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
	"github.com/good-yellow-bee/incidentdesk/internal/session"
)

// Context keys for storing user information.
type contextKey string

const (
	claimsKey  contextKey = "claims"
	sessionKey contextKey = "session_value"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// jsonUnauthorized writes an unauthorized error response.
func jsonUnauthorized(w http.ResponseWriter) {
	jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session")
}

// jsonForbidden writes a forbidden error response.
func jsonForbidden(w http.ResponseWriter) {
	jsonError(w, http.StatusForbidden, "FORBIDDEN", "access denied")
}

// UserLookup loads the current state of a user. It returns (nil, nil) when
// the user no longer exists.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// SessionAuth returns middleware that requires a valid session, read from the
// session cookie or a Bearer header. When users is set, the account must
// still exist and be active, and its current role replaces the role in the
// session. Sessions past half their lifetime are renewed and the cookie
// rewritten.
func SessionAuth(issuer session.Issuer, cookies *session.Cookies, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := zerolog.Ctx(ctx)

			value := session.FromRequest(r)
			if value == "" {
				jsonUnauthorized(w)
				return
			}
			_, cookieErr := r.Cookie(session.CookieName)
			fromCookie := cookieErr == nil

			claims, err := issuer.Validate(ctx, value)
			if err != nil {
				logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("session rejected")
				if fromCookie {
					cookies.Clear(w, r)
				}
				jsonUnauthorized(w)
				return
			}

			if users != nil {
				user, err := users.GetByID(ctx, claims.UserID)
				if err != nil {
					logger.Error().Err(err).Int64("user_id", claims.UserID).Msg("load session user")
					jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
					return
				}
				if user == nil || !user.IsActive() || !user.Role.Valid() {
					logger.Info().Int64("user_id", claims.UserID).Msg("session user no longer allowed")
					_ = issuer.Revoke(ctx, value)
					if fromCookie {
						cookies.Clear(w, r)
					}
					jsonUnauthorized(w)
					return
				}
				claims.Role = user.Role
			}

			renewed, err := issuer.Refresh(ctx, value, claims)
			if err != nil {
				logger.Warn().Err(err).Int64("user_id", claims.UserID).Msg("session renewal failed")
			} else if renewed != nil {
				if fromCookie {
					cookies.Set(w, r, renewed)
				} else {
					w.Header().Set("X-Session-Token", renewed.Value)
				}
				value = renewed.Value
			}

			noteRole(ctx, claims.Role)
			ctx = WithClaims(ctx, claims)
			ctx = context.WithValue(ctx, sessionKey, value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *session.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims returns the session claims from context.
func GetClaims(ctx context.Context) *session.Claims {
	if v := ctx.Value(claimsKey); v != nil {
		if c, ok := v.(*session.Claims); ok {
			return c
		}
	}
	return nil
}

// GetUserID returns the user ID from context, or 0.
func GetUserID(ctx context.Context) int64 {
	if c := GetClaims(ctx); c != nil {
		return c.UserID
	}
	return 0
}

// GetRole returns the user role from context.
func GetRole(ctx context.Context) models.Role {
	if c := GetClaims(ctx); c != nil {
		return c.Role
	}
	return models.RoleUnknown
}

// GetSessionValue returns the raw session value of the request.
func GetSessionValue(ctx context.Context) string {
	if v, ok := ctx.Value(sessionKey).(string); ok {
		return v
	}
	return ""
}

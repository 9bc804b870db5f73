// Package auth serves the login, logout and current-session endpoints.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/incidentdesk/internal/api/middleware"
	authn "github.com/good-yellow-bee/incidentdesk/internal/auth"
	"github.com/good-yellow-bee/incidentdesk/internal/metrics"
	"github.com/good-yellow-bee/incidentdesk/internal/policy"
	"github.com/good-yellow-bee/incidentdesk/internal/session"
)

// Handler handles authentication endpoints.
type Handler struct {
	authenticator  *authn.Authenticator
	issuer         session.Issuer
	cookies        *session.Cookies
	lockoutTracker *authn.LockoutTracker
}

// NewHandler creates a new auth handler.
func NewHandler(authenticator *authn.Authenticator, issuer session.Issuer, cookies *session.Cookies, lockout *authn.LockoutTracker) *Handler {
	return &Handler{
		authenticator:  authenticator,
		issuer:         issuer,
		cookies:        cookies,
		lockoutTracker: lockout,
	}
}

// Response helpers (local to avoid import cycle with api package)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error codes
const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeUnauthorized  = "UNAUTHORIZED"
	errCodeAccountLocked = "ACCOUNT_LOCKED"
	errCodeInternalError = "INTERNAL_ERROR"
)

// LoginRequest is the request body for login. Username may also be a
// numeric user id.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login. The token is also set as
// the session cookie; non-browser clients send it as a Bearer token.
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      authn.Result `json:"user"`
}

// MeResponse describes the signed-in user.
type MeResponse struct {
	UserID       int64               `json:"user_id"`
	Username     string              `json:"username"`
	DisplayName  string              `json:"display_name"`
	Role         string              `json:"role"`
	Capabilities []policy.Capability `json:"capabilities"`
	ExpiresAt    *time.Time          `json:"expires_at,omitempty"`
}

// Login verifies credentials and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if h.lockoutTracker.IsLocked(req.Username) {
		remaining := h.lockoutTracker.RemainingLockoutTime(req.Username)
		logger.Warn().Str("login", req.Username).Dur("remaining", remaining).Msg("login blocked: account locked")
		metrics.AuthAttemptsTotal.WithLabelValues("locked").Inc()
		w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Seconds())+1))
		jsonError(w, http.StatusTooManyRequests, errCodeAccountLocked, "account temporarily locked due to too many failed attempts")
		return
	}

	identity, err := h.authenticator.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Debug().Err(err).Msg("login canceled")
			jsonError(w, http.StatusServiceUnavailable, errCodeInternalError, authn.MessageFailed)
			return
		}
		h.loginFailed(w, r, req.Username, err)
		return
	}
	h.lockoutTracker.ClearFailures(req.Username)

	token, err := h.issuer.Issue(ctx, session.Claims{
		UserID:      identity.UserID,
		Role:        identity.Role,
		Username:    identity.Username,
		DisplayName: identity.DisplayName(),
	})
	if err != nil {
		logger.Error().Err(err).Int64("user_id", identity.UserID).Msg("issue session")
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, authn.MessageFailed)
		return
	}
	h.cookies.Set(w, r, token)

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	logger.Info().Int64("user_id", identity.UserID).Str("role", identity.Role.String()).Msg("login success")

	jsonOK(w, &LoginResponse{
		Token:     token.Value,
		TokenType: "Bearer",
		ExpiresAt: token.ExpiresAt,
		User:      authn.NewResult(identity, nil),
	})
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, login string, err error) {
	logger := zerolog.Ctx(r.Context())
	reason := authn.ReasonOf(err)
	metrics.AuthAttemptsTotal.WithLabelValues(reason.String()).Inc()
	result := authn.NewResult(nil, err)

	switch reason {
	case authn.ReasonCredentialsRequired:
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, result.ErrorMessage)
		return
	case authn.ReasonInternal:
		logger.Error().Err(err).Msg("login failed")
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, result.ErrorMessage)
		return
	}

	if h.lockoutTracker.RecordFailure(login) {
		metrics.AuthLockoutsTotal.Inc()
		logger.Warn().Str("login", login).Msg("account locked after repeated failures")
	}
	logger.Info().Str("login", login).Str("reason", reason.String()).Msg("login failed")
	jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, result.ErrorMessage)
}

// Logout ends the current session and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if value := middleware.GetSessionValue(ctx); value != "" {
		if err := h.issuer.Revoke(ctx, value); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("revoke session")
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
	}
	h.cookies.Clear(w, r)
	zerolog.Ctx(ctx).Info().Int64("user_id", middleware.GetUserID(ctx)).Msg("logout")
	jsonNoContent(w)
}

// Me returns the signed-in user and what their role allows.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid or expired session")
		return
	}

	resp := &MeResponse{
		UserID:       claims.UserID,
		Username:     claims.Username,
		DisplayName:  claims.DisplayName,
		Role:         claims.Role.String(),
		Capabilities: policy.Capabilities(claims.Role),
	}
	if resp.DisplayName == "" {
		resp.DisplayName = claims.Username
	}
	if resp.Capabilities == nil {
		resp.Capabilities = []policy.Capability{}
	}
	if !claims.ExpiresAt.IsZero() {
		expiresAt := claims.ExpiresAt.UTC()
		resp.ExpiresAt = &expiresAt
	}
	jsonOK(w, resp)
}

// CSRFToken returns a token for cookie-authenticated clients to send in the
// X-CSRF-Token header. Bearer sessions are not CSRF checked and get 400.
func (h *Handler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	token := middleware.CSRFToken(r)
	if token == "" {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "CSRF tokens are only issued to cookie sessions")
		return
	}
	w.Header().Set(middleware.CSRFHeader, token)
	jsonOK(w, map[string]string{"token": token})
}

package incidents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/incidentdesk/internal/incident"
)

// Response helpers (same pattern as auth)
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

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeUnavailable      = "UNAVAILABLE"
	errCodeInternalError    = "INTERNAL_ERROR"
)

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

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// serviceError maps an incident service error to a response. Validation
// failures are shown to the caller; anything else is logged and hidden.
func serviceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, incident.ErrInvalidInput):
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
	case errors.Is(err, incident.ErrTemplateNotFound):
		jsonError(w, http.StatusNotFound, errCodeNotFound, "template not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		zerolog.Ctx(r.Context()).Debug().Err(err).Str("op", op).Msg("request canceled")
		jsonError(w, http.StatusServiceUnavailable, errCodeUnavailable, "request canceled")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("incident request failed")
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
	}
}

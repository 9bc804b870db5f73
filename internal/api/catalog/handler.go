// Package catalog serves the tag and template endpoints.
package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/incidentdesk/internal/incident"
	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

// Response helpers (same pattern as incidents)
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
	errCodeConflict         = "CONFLICT"
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

func serviceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, incident.ErrInvalidInput):
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
	case errors.Is(err, incident.ErrConflict):
		jsonError(w, http.StatusConflict, errCodeConflict, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("catalog request failed")
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
	}
}

// Handler handles tag and template endpoints.
type Handler struct {
	service *incident.Service
}

func NewHandler(service *incident.Service) *Handler {
	return &Handler{service: service}
}

// Request types
type TagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type TemplateRequest struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity"`
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > 100 {
		return errors.New("name must be 100 characters or less")
	}
	return nil
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// ListTags returns all tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		serviceError(w, r, "list tags", err)
		return
	}
	jsonOK(w, tags)
}

// CreateTag creates a tag.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if err := ValidateName(req.Name); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	tag, err := h.service.CreateTag(r.Context(), req.Name, req.Color)
	if err != nil {
		serviceError(w, r, "create tag", err)
		return
	}
	jsonCreated(w, tag)
}

// DeleteTag removes a tag from the catalog and from every incident.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid id")
		return
	}

	deleted, err := h.service.DeleteTag(r.Context(), id)
	if err != nil {
		serviceError(w, r, "delete tag", err)
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "tag not found")
		return
	}
	jsonNoContent(w)
}

// ListTemplates returns all templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.service.ListTemplates(r.Context())
	if err != nil {
		serviceError(w, r, "list templates", err)
		return
	}
	jsonOK(w, templates)
}

// CreateTemplate creates an incident template.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if err := ValidateName(req.Name); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	severity, ok := models.ParseSeverity(req.Severity)
	if !ok {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "unknown severity "+strconv.Quote(req.Severity))
		return
	}

	tmpl := &models.Template{
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
		Severity:    severity,
	}
	if err := h.service.CreateTemplate(r.Context(), tmpl); err != nil {
		serviceError(w, r, "create template", err)
		return
	}
	jsonCreated(w, tmpl)
}

// DeleteTemplate removes a template.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid id")
		return
	}

	deleted, err := h.service.DeleteTemplate(r.Context(), id)
	if err != nil {
		serviceError(w, r, "delete template", err)
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "template not found")
		return
	}
	jsonNoContent(w)
}

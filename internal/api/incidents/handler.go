// Package incidents serves the incident, timeline, export and action item
// endpoints.
package incidents

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/incidentdesk/internal/api/middleware"
	"github.com/good-yellow-bee/incidentdesk/internal/export"
	"github.com/good-yellow-bee/incidentdesk/internal/incident"
)

// Handler handles incident endpoints.
type Handler struct {
	service *incident.Service
	now     func() time.Time
}

// NewHandler creates a new incident handler.
func NewHandler(service *incident.Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

// Request types
type CreateRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Severity    string     `json:"severity"`
	Status      string     `json:"status,omitempty"`
	OccurredAt  *time.Time `json:"occurred_at,omitempty"`
	RootCause   string     `json:"root_cause,omitempty"`
	Impact      string     `json:"impact,omitempty"`
	TagIDs      []int64    `json:"tag_ids,omitempty"`
	// TemplateID creates the incident from a template; title, description
	// and severity then come from the template.
	TemplateID *int64 `json:"template_id,omitempty"`
}

// UpdateRequest replaces every mutable field of an incident.
type UpdateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Severity    string `json:"severity"`
	RootCause   string `json:"root_cause"`
	Impact      string `json:"impact"`
}

type TagsRequest struct {
	TagIDs []int64 `json:"tag_ids"`
}

type TimelineRequest struct {
	OccurredAt  *time.Time `json:"occurred_at,omitempty"`
	Description string     `json:"description"`
}

func actorOf(r *http.Request) incident.Actor {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		return incident.Actor{}
	}
	name := claims.DisplayName
	if name == "" {
		name = claims.Username
	}
	return incident.ActorFor(claims.UserID, name)
}

// List returns one page of incidents.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	page, err := h.service.GetIncidentsPaged(r.Context(), q)
	if err != nil {
		serviceError(w, r, "list incidents", err)
		return
	}
	jsonOK(w, page)
}

// Create records a new incident.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	var occurredAt time.Time
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}
	ctx := r.Context()

	if req.TemplateID != nil {
		created, err := h.service.CreateFromTemplate(ctx, *req.TemplateID, occurredAt, actorOf(r))
		if err != nil {
			serviceError(w, r, "create incident from template", err)
			return
		}
		jsonCreated(w, created)
		return
	}

	if err := ValidateTitle(req.Title); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	for field, v := range map[string]string{"description": req.Description, "root_cause": req.RootCause, "impact": req.Impact} {
		if err := ValidateText(field, v); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
	}
	severity, err := parseSeverity(req.Severity)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	in := incident.NewIncident{
		Title:       req.Title,
		Description: req.Description,
		Severity:    severity,
		OccurredAt:  occurredAt,
		RootCause:   req.RootCause,
		Impact:      req.Impact,
		TagIDs:      req.TagIDs,
	}
	if req.Status != "" {
		if in.Status, err = parseStatus(req.Status); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
	}

	created, err := h.service.CreateIncident(ctx, in, actorOf(r))
	if err != nil {
		serviceError(w, r, "create incident", err)
		return
	}
	jsonCreated(w, created)
}

// Get returns an incident with its tags, timeline and action items.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	h.writeIncident(w, r, id)
}

func (h *Handler) writeIncident(w http.ResponseWriter, r *http.Request, id int64) {
	found, err := h.service.GetIncident(r.Context(), id)
	if err != nil {
		serviceError(w, r, "get incident", err)
		return
	}
	if found == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "incident not found")
		return
	}
	jsonOK(w, found)
}

// Update replaces the mutable fields of an incident. Every changed field is
// recorded on the timeline.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if err := ValidateTitle(req.Title); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	for field, v := range map[string]string{"description": req.Description, "root_cause": req.RootCause, "impact": req.Impact} {
		if err := ValidateText(field, v); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	severity, err := parseSeverity(req.Severity)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	found, err := h.service.UpdateIncidentInfo(r.Context(), id, incident.InfoUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Severity:    severity,
		RootCause:   req.RootCause,
		Impact:      req.Impact,
	}, actorOf(r))
	if err != nil {
		serviceError(w, r, "update incident", err)
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "incident not found")
		return
	}
	h.writeIncident(w, r, id)
}

// UpdateTags replaces the tag set of an incident.
func (h *Handler) UpdateTags(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	var req TagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	found, err := h.service.UpdateIncidentTags(r.Context(), id, req.TagIDs, actorOf(r))
	if err != nil {
		serviceError(w, r, "update incident tags", err)
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "incident not found")
		return
	}
	h.writeIncident(w, r, id)
}

// AddTimelineEvent appends a manual note to the timeline.
func (h *Handler) AddTimelineEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	var req TimelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if err := ValidateText("description", req.Description); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	var occurredAt time.Time
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	found, err := h.service.AddTimelineEvent(r.Context(), id, occurredAt, req.Description, actorOf(r))
	if err != nil {
		serviceError(w, r, "add timeline event", err)
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "incident not found")
		return
	}
	jsonNoContent(w)
}

// Delete removes an incident.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	deleted, err := h.service.DeleteIncident(r.Context(), id)
	if err != nil {
		serviceError(w, r, "delete incident", err)
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "incident not found")
		return
	}
	zerolog.Ctx(r.Context()).Info().Int64("incident_id", id).Int64("user_id", middleware.GetUserID(r.Context())).Msg("incident deleted")
	jsonNoContent(w)
}

// Export downloads an incident report as JSON or CSV.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	format, ok := export.ParseFormat(r.URL.Query().Get("format"))
	if !ok {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "format must be json or csv")
		return
	}

	found, err := h.service.GetIncident(r.Context(), id)
	if err != nil {
		serviceError(w, r, "export incident", err)
		return
	}
	if found == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "incident not found")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="incident-%d.%s"`, id, format.Extension()))
	if err := export.NewExporter(format, w).ExportReport(export.NewReport(found, h.now())); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("incident_id", id).Msg("export incident")
	}
}

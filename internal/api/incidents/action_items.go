package incidents

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/good-yellow-bee/incidentdesk/internal/incident"
	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

type ActionItemRequest struct {
	IncidentID  *int64     `json:"incident_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type ActionStatusRequest struct {
	Status string `json:"status"`
}

// ListActionItems returns action items. With incident_id only that
// incident's items are listed; with unassigned=true only items without an
// incident.
func (h *Handler) ListActionItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ctx := r.Context()

	var (
		items []*models.ActionItem
		err   error
	)
	switch {
	case query.Get("incident_id") != "":
		id, perr := strconv.ParseInt(query.Get("incident_id"), 10, 64)
		if perr != nil || id <= 0 {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid incident_id")
			return
		}
		items, err = h.service.ListActionItems(ctx, &id)
	case query.Get("unassigned") == "true":
		items, err = h.service.ListUnassignedActionItems(ctx)
	default:
		items, err = h.service.ListActionItems(ctx, nil)
	}
	if err != nil {
		serviceError(w, r, "list action items", err)
		return
	}
	jsonOK(w, items)
}

// CreateActionItem adds a follow-up task, optionally tied to an incident.
func (h *Handler) CreateActionItem(w http.ResponseWriter, r *http.Request) {
	var req ActionItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if err := ValidateTitle(req.Title); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateText("description", req.Description); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	in := incident.NewActionItem{
		IncidentID:  req.IncidentID,
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	}
	if req.Priority != "" {
		p, ok := models.ParsePriority(req.Priority)
		if !ok {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "unknown priority "+strconv.Quote(req.Priority))
			return
		}
		in.Priority = p
	}

	item, err := h.service.CreateActionItem(r.Context(), in, actorOf(r))
	if err != nil {
		serviceError(w, r, "create action item", err)
		return
	}
	jsonCreated(w, item)
}

// UpdateActionItemStatus moves an action item to a new status.
func (h *Handler) UpdateActionItemStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	var req ActionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	item, err := h.service.UpdateActionItemStatus(r.Context(), id, models.ActionStatus(req.Status))
	if err != nil {
		serviceError(w, r, "update action item", err)
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "action item not found")
		return
	}
	jsonOK(w, item)
}

// DeleteActionItem removes an action item.
func (h *Handler) DeleteActionItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	deleted, err := h.service.DeleteActionItem(r.Context(), id)
	if err != nil {
		serviceError(w, r, "delete action item", err)
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "action item not found")
		return
	}
	jsonNoContent(w)
}

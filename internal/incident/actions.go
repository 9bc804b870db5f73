package incident

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

// NewActionItem describes a follow-up to create. IncidentID may be nil for
// items not tied to an incident.
type NewActionItem struct {
	IncidentID  *int64
	Title       string
	Description string
	Priority    models.Priority
	AssignedTo  string
	DueDate     *time.Time
}

// CreateActionItem stores a new action item in status Open. When the item
// belongs to an incident, a timeline note records it.
func (s *Service) CreateActionItem(ctx context.Context, in NewActionItem, actor Actor) (*models.ActionItem, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if _, ok := models.ParsePriority(string(in.Priority)); !ok {
		return nil, invalid("unknown priority %q", in.Priority)
	}

	if in.IncidentID != nil {
		incident, err := s.incidents.GetByID(ctx, *in.IncidentID)
		if err != nil {
			return nil, err
		}
		if incident == nil {
			return nil, invalid("incident %d does not exist", *in.IncidentID)
		}
	}

	item := &models.ActionItem{
		IncidentID:  in.IncidentID,
		Title:       title,
		Description: in.Description,
		Status:      models.ActionOpen,
		Priority:    in.Priority,
		AssignedTo:  strings.TrimSpace(in.AssignedTo),
		DueDate:     in.DueDate,
		CreatedAt:   s.now(),
	}
	if err := s.actions.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create action item: %w", err)
	}

	if item.IncidentID != nil {
		if _, err := s.AddTimelineEvent(ctx, *item.IncidentID, item.CreatedAt, "Action item added: "+item.Title, actor); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// UpdateActionItemStatus moves an action item to status. Completing an item
// stamps completed_at; moving it anywhere else clears it. Returns nil when
// the item does not exist.
func (s *Service) UpdateActionItemStatus(ctx context.Context, id int64, status models.ActionStatus) (*models.ActionItem, error) {
	parsed, ok := models.ParseActionStatus(string(status))
	if !ok {
		return nil, invalid("unknown action item status %q", status)
	}

	item, err := s.actions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	if item.Status == parsed {
		return item, nil
	}

	item.Status = parsed
	if parsed == models.ActionCompleted {
		now := s.now()
		item.CompletedAt = &now
	} else {
		item.CompletedAt = nil
	}
	if err := s.actions.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update action item %d: %w", id, err)
	}
	return item, nil
}

// ListActionItems returns the items of one incident, or all items when
// incidentID is nil.
func (s *Service) ListActionItems(ctx context.Context, incidentID *int64) ([]*models.ActionItem, error) {
	items, err := s.actions.List(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.ActionItem{}
	}
	return items, nil
}

// ListUnassignedActionItems returns items not tied to an incident.
func (s *Service) ListUnassignedActionItems(ctx context.Context) ([]*models.ActionItem, error) {
	items, err := s.actions.ListUnassigned(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.ActionItem{}
	}
	return items, nil
}

// DeleteActionItem removes an action item. Returns false when it does not
// exist.
func (s *Service) DeleteActionItem(ctx context.Context, id int64) (bool, error) {
	return s.actions.Delete(ctx, id)
}

package incident

import (
	"context"
	"fmt"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
	"github.com/good-yellow-bee/incidentdesk/internal/storage"
)

// ListQuery selects one page of incidents.
type ListQuery struct {
	Page     int
	PageSize int
	Status   *models.Status
	Severity *models.Severity
	// TagIDs matches incidents carrying any of the tags.
	TagIDs []int64
	// ShowResolved includes incidents in status Resolved when no status
	// filter is set. Closed incidents are always listed.
	ShowResolved bool
}

// Page is one page of a listing.
type Page struct {
	Items      []*models.Incident `json:"items"`
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// GetIncidentsPaged lists incidents ordered by severity, status and most
// recent occurrence.
func (s *Service) GetIncidentsPaged(ctx context.Context, q ListQuery) (*Page, error) {
	page, size := s.normalizePage(q.Page, q.PageSize)

	items, total, err := s.incidents.List(ctx, storage.IncidentFilter{
		Status:       q.Status,
		Severity:     q.Severity,
		HideResolved: q.Status == nil && !q.ShowResolved,
		TagIDs:       uniqueIDs(q.TagIDs),
		Limit:        size,
		Offset:       (page - 1) * size,
	})
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	if items == nil {
		items = []*models.Incident{}
	}

	return &Page{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}, nil
}

func (s *Service) normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case size < 1:
		size = s.opts.DefaultPageSize
	case size > s.opts.MaxPageSize:
		size = s.opts.MaxPageSize
	}
	return page, size
}

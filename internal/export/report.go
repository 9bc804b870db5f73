// Package export renders incident reports as JSON or CSV.
package export

import (
	"time"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

// Report is a post-incident report.
type Report struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Incident    *models.Incident       `json:"incident"`
	Timeline    []models.TimelineEvent `json:"timeline"`
	ActionItems []models.ActionItem    `json:"action_items"`
	Summary     *Summary               `json:"summary"`
}

// Summary holds figures derived from the incident.
type Summary struct {
	TimelineEvents    int      `json:"timeline_events"`
	ActionItems       int      `json:"action_items"`
	OpenActionItems   int      `json:"open_action_items"`
	TimeToResolve     string   `json:"time_to_resolve,omitempty"`
	TimeToResolveSecs int64    `json:"time_to_resolve_seconds,omitempty"`
	Tags              []string `json:"tags"`
}

// NewReport builds a report from an incident loaded with its timeline,
// action items and tags.
func NewReport(incident *models.Incident, generatedAt time.Time) *Report {
	timeline := incident.Timeline
	if timeline == nil {
		timeline = []models.TimelineEvent{}
	}
	items := incident.ActionItems
	if items == nil {
		items = []models.ActionItem{}
	}

	summary := &Summary{
		TimelineEvents: len(timeline),
		ActionItems:    len(items),
		Tags:           make([]string, 0, len(incident.Tags)),
	}
	for _, item := range items {
		if item.Status == models.ActionOpen || item.Status == models.ActionInProgress {
			summary.OpenActionItems++
		}
	}
	for _, tag := range incident.Tags {
		summary.Tags = append(summary.Tags, tag.Name)
	}
	if incident.ResolvedAt != nil && incident.ResolvedAt.After(incident.OccurredAt) {
		d := incident.ResolvedAt.Sub(incident.OccurredAt).Truncate(time.Second)
		summary.TimeToResolve = d.String()
		summary.TimeToResolveSecs = int64(d.Seconds())
	}

	// The nested slices are reported at the top level.
	stripped := *incident
	stripped.Timeline = nil
	stripped.ActionItems = nil

	return &Report{
		GeneratedAt: generatedAt.UTC(),
		Incident:    &stripped,
		Timeline:    timeline,
		ActionItems: items,
		Summary:     summary,
	}
}

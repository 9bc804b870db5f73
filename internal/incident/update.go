package incident

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/good-yellow-bee/incidentdesk/internal/metrics"
	"github.com/good-yellow-bee/incidentdesk/internal/models"
	"github.com/good-yellow-bee/incidentdesk/internal/storage"
)

// InfoUpdate carries the full set of mutable incident fields.
type InfoUpdate struct {
	Title       string
	Description string
	Status      models.Status
	Severity    models.Severity
	RootCause   string
	Impact      string
}

// UpdateIncidentInfo applies update to an incident and appends one timeline
// event per changed field. It returns false when the incident does not
// exist. An update that changes nothing writes nothing and returns true.
func (s *Service) UpdateIncidentInfo(ctx context.Context, id int64, update InfoUpdate, actor Actor) (bool, error) {
	update.Title = strings.TrimSpace(update.Title)
	if update.Title == "" {
		return false, invalid("title is required")
	}
	if !update.Status.Valid() {
		return false, invalid("unknown status %q", update.Status)
	}
	if !update.Severity.Valid() {
		return false, invalid("unknown severity %q", update.Severity)
	}

	var (
		found bool
		notes []string
	)
	err := s.incidents.WithTx(ctx, func(tx storage.IncidentTx) error {
		incident, err := tx.GetForUpdate(ctx, id)
		if err != nil || incident == nil {
			return err
		}
		found = true

		now := s.now()
		notes = applyInfo(incident, update, actor, now)
		if len(notes) == 0 {
			return nil
		}
		if err := tx.Update(ctx, incident); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, events(id, notes, actor, now))
	})
	if err != nil {
		s.record("update_info", "error")
		return false, fmt.Errorf("update incident %d: %w", id, err)
	}

	switch {
	case !found:
		s.record("update_info", "not_found")
		return false, nil
	case len(notes) == 0:
		s.record("update_info", "unchanged")
	default:
		s.record("update_info", "changed")
		metrics.TimelineEventsTotal.Add(float64(len(notes)))
		s.logger.Debug().Int64("incident_id", id).Int("changes", len(notes)).Msg("incident updated")
	}
	return true, nil
}

// applyInfo copies update onto incident and returns a note for every field
// that changed, in a fixed field order.
func applyInfo(incident *models.Incident, update InfoUpdate, actor Actor, now time.Time) []string {
	var notes []string

	if incident.Title != update.Title {
		notes = append(notes, fmt.Sprintf("Title changed: %s → %s", incident.Title, update.Title))
		incident.Title = update.Title
	}
	if incident.Description != update.Description {
		notes = append(notes, "Description updated")
		incident.Description = update.Description
	}
	if incident.Status != update.Status {
		notes = append(notes, fmt.Sprintf("Status changed: %s → %s", incident.Status, update.Status))
		incident.Status = update.Status
		applyStatusEffects(incident, actor, now)
	}
	if incident.Severity != update.Severity {
		notes = append(notes, fmt.Sprintf("Severity changed: %s → %s", incident.Severity, update.Severity))
		incident.Severity = update.Severity
	}
	if incident.RootCause != update.RootCause {
		notes = append(notes, "Root cause updated")
		incident.RootCause = update.RootCause
	}
	if incident.Impact != update.Impact {
		notes = append(notes, "Impact updated")
		incident.Impact = update.Impact
	}
	return notes
}

// applyStatusEffects maintains resolved_at and resolved_by after the status
// has changed. A resolution timestamp already present is kept.
func applyStatusEffects(incident *models.Incident, actor Actor, now time.Time) {
	switch {
	case incident.Status.IsSettled():
		if incident.ResolvedAt == nil {
			resolved := now
			incident.ResolvedAt = &resolved
			if actor.UserID != nil {
				by := *actor.UserID
				incident.ResolvedBy = &by
			}
		}
	case incident.Status.IsActive():
		incident.ResolvedAt = nil
		incident.ResolvedBy = nil
	}
}

func events(incidentID int64, notes []string, actor Actor, now time.Time) []*models.TimelineEvent {
	author := actor.Label()
	out := make([]*models.TimelineEvent, 0, len(notes))
	for _, note := range notes {
		out = append(out, &models.TimelineEvent{
			IncidentID:  incidentID,
			OccurredAt:  now,
			Description: note,
			Author:      author,
		})
	}
	return out
}

// UpdateIncidentTags replaces an incident's tag set with tagIDs and records
// the difference as a single timeline event. It returns false when the
// incident does not exist.
func (s *Service) UpdateIncidentTags(ctx context.Context, id int64, tagIDs []int64, actor Actor) (bool, error) {
	requested := uniqueIDs(tagIDs)

	var (
		found   bool
		changed bool
	)
	err := s.incidents.WithTx(ctx, func(tx storage.IncidentTx) error {
		incident, err := tx.GetForUpdate(ctx, id)
		if err != nil || incident == nil {
			return err
		}
		found = true

		current, err := tx.TagIDs(ctx, id)
		if err != nil {
			return err
		}
		added, removed := diffIDs(current, requested)
		if len(added) == 0 && len(removed) == 0 {
			return nil
		}
		changed = true

		names, err := tx.TagNames(ctx, append(append([]int64{}, added...), removed...))
		if err != nil {
			return err
		}
		for _, tagID := range added {
			if _, ok := names[tagID]; !ok {
				return fmt.Errorf("%w: %d", ErrUnknownTag, tagID)
			}
		}

		if err := tx.RemoveTags(ctx, id, removed); err != nil {
			return err
		}
		if err := tx.AddTags(ctx, id, added); err != nil {
			return err
		}
		note := tagNote(namesOf(added, names), namesOf(removed, names))
		return tx.AppendEvents(ctx, events(id, []string{note}, actor, s.now()))
	})
	if err != nil {
		s.record("update_tags", "error")
		return false, fmt.Errorf("update incident %d tags: %w", id, err)
	}

	switch {
	case !found:
		s.record("update_tags", "not_found")
		return false, nil
	case !changed:
		s.record("update_tags", "unchanged")
	default:
		s.record("update_tags", "changed")
		metrics.TimelineEventsTotal.Inc()
	}
	return true, nil
}

// diffIDs returns requested minus current and current minus requested.
func diffIDs(current, requested []int64) (added, removed []int64) {
	have := make(map[int64]bool, len(current))
	for _, id := range current {
		have[id] = true
	}
	want := make(map[int64]bool, len(requested))
	for _, id := range requested {
		want[id] = true
		if !have[id] {
			added = append(added, id)
		}
	}
	for _, id := range current {
		if !want[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}

func namesOf(ids []int64, names map[int64]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			name = fmt.Sprintf("#%d", id)
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func tagNote(added, removed []string) string {
	var clauses []string
	if len(added) > 0 {
		clauses = append(clauses, "Tags added: "+strings.Join(added, ", "))
	}
	if len(removed) > 0 {
		clauses = append(clauses, "Tags removed: "+strings.Join(removed, ", "))
	}
	return strings.Join(clauses, "; ")
}

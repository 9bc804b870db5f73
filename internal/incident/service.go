// Package incident applies changes to incidents and records each change in
// the incident's audit timeline.
package incident

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/incidentdesk/internal/metrics"
	"github.com/good-yellow-bee/incidentdesk/internal/models"
	"github.com/good-yellow-bee/incidentdesk/internal/storage"
)

var (
	// ErrInvalidInput is returned for requests that fail validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownTag is returned when a request references a missing tag.
	ErrUnknownTag = fmt.Errorf("%w: unknown tag", ErrInvalidInput)
	// ErrTemplateNotFound is returned when creating from a missing template.
	ErrTemplateNotFound = errors.New("template not found")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Actor identifies who made a change. Both fields are optional.
type Actor struct {
	UserID *int64
	Name   string
}

// ActorFor builds an Actor for a signed-in user.
func ActorFor(userID int64, name string) Actor {
	return Actor{UserID: &userID, Name: name}
}

// Label is the author recorded on timeline events: the name, else
// "User {id}", else empty.
func (a Actor) Label() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	if a.UserID != nil {
		return fmt.Sprintf("User %d", *a.UserID)
	}
	return ""
}

// Options configures a Service.
type Options struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Logger receives service logs. Defaults to a no-op logger.
	Logger zerolog.Logger
	// DefaultPageSize is used when a listing asks for no page size.
	DefaultPageSize int
	// MaxPageSize caps listing page sizes.
	MaxPageSize int
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		Now:             time.Now,
		Logger:          zerolog.Nop(),
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

// Service applies incident changes transactionally.
type Service struct {
	incidents storage.IncidentRepository
	tags      storage.TagRepository
	actions   storage.ActionItemRepository
	templates storage.TemplateRepository
	opts      *Options
	logger    zerolog.Logger
}

// NewService creates a Service on top of store.
func NewService(store storage.Storage, opts *Options) *Service {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	return &Service{
		incidents: store.Incidents(),
		tags:      store.Tags(),
		actions:   store.ActionItems(),
		templates: store.Templates(),
		opts:      opts,
		logger:    opts.Logger.With().Str("component", "incident").Logger(),
	}
}

// now returns the current time in UTC at the precision every supported
// database can store.
func (s *Service) now() time.Time {
	return s.opts.Now().UTC().Truncate(time.Microsecond)
}

func (s *Service) record(operation, result string) {
	metrics.IncidentMutationsTotal.WithLabelValues(operation, result).Inc()
}

// NewIncident describes an incident to create.
type NewIncident struct {
	Title       string
	Description string
	Severity    models.Severity
	Status      models.Status // defaults to Open
	OccurredAt  time.Time     // defaults to now
	RootCause   string
	Impact      string
	TagIDs      []int64
}

// CreateIncident stores a new incident, attaches its tags and opens its
// timeline with a creation event.
func (s *Service) CreateIncident(ctx context.Context, in NewIncident, actor Actor) (*models.Incident, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if !in.Severity.Valid() {
		return nil, invalid("unknown severity %q", in.Severity)
	}
	if in.Status == "" {
		in.Status = models.StatusOpen
	}
	if !in.Status.Valid() {
		return nil, invalid("unknown status %q", in.Status)
	}

	now := s.now()
	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}

	incident := &models.Incident{
		Title:       title,
		Description: in.Description,
		Severity:    in.Severity,
		Status:      in.Status,
		OccurredAt:  occurred.UTC().Truncate(time.Microsecond),
		CreatedAt:   now,
		RootCause:   in.RootCause,
		Impact:      in.Impact,
	}
	if incident.Status.IsSettled() {
		incident.ResolvedAt = &now
		incident.ResolvedBy = actor.UserID
	}

	tagIDs := uniqueIDs(in.TagIDs)
	err := s.incidents.WithTx(ctx, func(tx storage.IncidentTx) error {
		if len(tagIDs) > 0 {
			names, err := tx.TagNames(ctx, tagIDs)
			if err != nil {
				return err
			}
			if len(names) != len(tagIDs) {
				return ErrUnknownTag
			}
		}
		if err := tx.Create(ctx, incident); err != nil {
			return err
		}
		if err := tx.AddTags(ctx, incident.ID, tagIDs); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, []*models.TimelineEvent{{
			IncidentID:  incident.ID,
			OccurredAt:  now,
			Description: "Incident created",
			Author:      actor.Label(),
		}})
	})
	if err != nil {
		s.record("create", "error")
		return nil, fmt.Errorf("create incident: %w", err)
	}

	s.record("create", "changed")
	metrics.TimelineEventsTotal.Inc()
	s.logger.Info().Int64("incident_id", incident.ID).Str("severity", string(incident.Severity)).Msg("incident created")
	return incident, nil
}

// CreateFromTemplate creates an incident pre-filled from a template.
func (s *Service) CreateFromTemplate(ctx context.Context, templateID int64, occurredAt time.Time, actor Actor) (*models.Incident, error) {
	tmpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if tmpl == nil {
		return nil, ErrTemplateNotFound
	}
	return s.CreateIncident(ctx, NewIncident{
		Title:       tmpl.Title,
		Description: tmpl.Description,
		Severity:    tmpl.Severity,
		OccurredAt:  occurredAt,
	}, actor)
}

// GetIncident loads an incident with its tags, timeline and action items.
// Returns (nil, nil) when the incident does not exist.
func (s *Service) GetIncident(ctx context.Context, id int64) (*models.Incident, error) {
	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, nil
	}

	timeline, err := s.incidents.Timeline(ctx, id)
	if err != nil {
		return nil, err
	}
	incident.Timeline = timeline

	items, err := s.actions.List(ctx, &id)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		incident.ActionItems = append(incident.ActionItems, *item)
	}
	return incident, nil
}

// AddTimelineEvent appends a manual note to an incident's timeline.
// Returns false when the incident does not exist.
func (s *Service) AddTimelineEvent(ctx context.Context, id int64, occurredAt time.Time, description string, actor Actor) (bool, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return false, invalid("description is required")
	}
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	found := false
	err := s.incidents.WithTx(ctx, func(tx storage.IncidentTx) error {
		incident, err := tx.GetForUpdate(ctx, id)
		if err != nil || incident == nil {
			return err
		}
		found = true
		return tx.AppendEvents(ctx, []*models.TimelineEvent{{
			IncidentID:  id,
			OccurredAt:  occurredAt.UTC().Truncate(time.Microsecond),
			Description: description,
			Author:      actor.Label(),
		}})
	})
	if err != nil {
		s.record("add_event", "error")
		return false, fmt.Errorf("add timeline event: %w", err)
	}
	if !found {
		s.record("add_event", "not_found")
		return false, nil
	}
	s.record("add_event", "changed")
	metrics.TimelineEventsTotal.Inc()
	return true, nil
}

// DeleteIncident removes an incident with its timeline, action items and
// tag associations. Returns false when the incident does not exist.
func (s *Service) DeleteIncident(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.incidents.Delete(ctx, id)
	if err != nil {
		s.record("delete", "error")
		return false, err
	}
	if !deleted {
		s.record("delete", "not_found")
		return false, nil
	}
	s.record("delete", "changed")
	s.logger.Info().Int64("incident_id", id).Msg("incident deleted")
	return true, nil
}

// uniqueIDs returns ids without duplicates, in first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package incident

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

// ErrConflict is returned when a tag or template name is already taken.
var ErrConflict = errors.New("name already exists")

const defaultTagColor = "#6c757d"

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CreateTag stores a new tag. The color defaults to grey.
func (s *Service) CreateTag(ctx context.Context, name, color string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("tag name is required")
	}
	if color == "" {
		color = defaultTagColor
	}
	if !colorPattern.MatchString(color) {
		return nil, invalid("color must look like #rrggbb")
	}

	existing, err := s.tags.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("tag %q: %w", name, ErrConflict)
	}

	tag := &models.Tag{Name: name, Color: strings.ToLower(color), CreatedAt: s.now()}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return tag, nil
}

// ListTags returns every tag ordered by name.
func (s *Service) ListTags(ctx context.Context) ([]*models.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []*models.Tag{}
	}
	return tags, nil
}

// DeleteTag removes a tag and detaches it from every incident.
func (s *Service) DeleteTag(ctx context.Context, id int64) (bool, error) {
	return s.tags.Delete(ctx, id)
}

// CreateTemplate stores a new incident template.
func (s *Service) CreateTemplate(ctx context.Context, tmpl *models.Template) error {
	tmpl.Name = strings.TrimSpace(tmpl.Name)
	tmpl.Title = strings.TrimSpace(tmpl.Title)
	if tmpl.Name == "" || tmpl.Title == "" {
		return invalid("template name and title are required")
	}
	if !tmpl.Severity.Valid() {
		return invalid("unknown severity %q", tmpl.Severity)
	}

	existing, err := s.templates.GetByName(ctx, tmpl.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("template %q: %w", tmpl.Name, ErrConflict)
	}

	tmpl.CreatedAt = s.now()
	if err := s.templates.Create(ctx, tmpl); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// ListTemplates returns every template.
func (s *Service) ListTemplates(ctx context.Context) ([]*models.Template, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []*models.Template{}
	}
	return templates, nil
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, id int64) (bool, error) {
	return s.templates.Delete(ctx, id)
}

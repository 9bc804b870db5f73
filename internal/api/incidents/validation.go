package incidents

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/incidentdesk/internal/incident"
	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

const (
	maxTitleLength = 200
	maxTextLength  = 10000
)

// parseID reads a positive integer URL parameter.
func parseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// ValidateTitle checks a title's presence and length.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title is required")
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("title must be %d characters or less", maxTitleLength)
	}
	return nil
}

// ValidateText checks the length of a free-text field.
func ValidateText(field, value string) error {
	if len(value) > maxTextLength {
		return fmt.Errorf("%s must be %d characters or less", field, maxTextLength)
	}
	return nil
}

func parseSeverity(v string) (models.Severity, error) {
	s, ok := models.ParseSeverity(v)
	if !ok {
		return "", fmt.Errorf("unknown severity %q", v)
	}
	return s, nil
}

func parseStatus(v string) (models.Status, error) {
	s, ok := models.ParseStatus(v)
	if !ok {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// parseListQuery reads the listing parameters: page, page_size, status,
// severity, tag (repeatable or comma separated) and show_resolved.
func parseListQuery(values url.Values) (incident.ListQuery, error) {
	var q incident.ListQuery

	for name, dst := range map[string]*int{"page": &q.Page, "page_size": &q.PageSize} {
		if v := values.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return q, fmt.Errorf("invalid %s", name)
			}
			*dst = n
		}
	}

	if v := values.Get("status"); v != "" {
		s, err := parseStatus(v)
		if err != nil {
			return q, err
		}
		q.Status = &s
	}
	if v := values.Get("severity"); v != "" {
		s, err := parseSeverity(v)
		if err != nil {
			return q, err
		}
		q.Severity = &s
	}

	for _, raw := range values["tag"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return q, fmt.Errorf("invalid tag id %q", part)
			}
			q.TagIDs = append(q.TagIDs, id)
		}
	}

	if v := values.Get("show_resolved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, errors.New("invalid show_resolved")
		}
		q.ShowResolved = b
	}
	return q, nil
}

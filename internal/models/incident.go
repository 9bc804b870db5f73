package models

import (
	"strings"
	"time"
)

// Severity is the impact level of an incident, ordered Low < Critical.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Severities lists severities from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
}

// Rank orders severities for listing: Critical sorts first, unknown last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s.Rank() < 4
}

// ParseSeverity matches a severity name case-insensitively.
func ParseSeverity(v string) (Severity, bool) {
	for _, s := range Severities() {
		if strings.EqualFold(string(s), strings.TrimSpace(v)) {
			return s, true
		}
	}
	return "", false
}

// Status is the lifecycle state of an incident.
type Status string

const (
	StatusOpen          Status = "Open"
	StatusInvestigating Status = "Investigating"
	StatusResolved      Status = "Resolved"
	StatusClosed        Status = "Closed"
)

// Statuses lists statuses in workflow order.
func Statuses() []Status {
	return []Status{StatusOpen, StatusInvestigating, StatusResolved, StatusClosed}
}

// Rank orders statuses for listing: Open sorts first, unknown last.
func (s Status) Rank() int {
	switch s {
	case StatusOpen:
		return 0
	case StatusInvestigating:
		return 1
	case StatusResolved:
		return 2
	case StatusClosed:
		return 3
	default:
		return 4
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.Rank() < 4
}

// IsSettled reports whether the incident is finished (Resolved or Closed).
func (s Status) IsSettled() bool {
	return s == StatusResolved || s == StatusClosed
}

// IsActive reports whether the incident is still being worked on.
func (s Status) IsActive() bool {
	return s == StatusOpen || s == StatusInvestigating
}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(v string) (Status, bool) {
	for _, s := range Statuses() {
		if strings.EqualFold(string(s), strings.TrimSpace(v)) {
			return s, true
		}
	}
	return "", false
}

// Incident is a recorded production problem.
type Incident struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    Severity        `json:"severity"`
	Status      Status          `json:"status"`
	OccurredAt  time.Time       `json:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	RootCause   string          `json:"root_cause,omitempty"`
	Impact      string          `json:"impact,omitempty"`
	ResolvedBy  *int64          `json:"resolved_by,omitempty"`
	Tags        []Tag           `json:"tags,omitempty"`
	Timeline    []TimelineEvent `json:"timeline,omitempty"`
	ActionItems []ActionItem    `json:"action_items,omitempty"`
}

// TimelineEvent is an append-only audit entry attached to an incident.
type TimelineEvent struct {
	ID          int64     `json:"id"`
	IncidentID  int64     `json:"incident_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Description string    `json:"description"`
	Author      string    `json:"author,omitempty"`
}

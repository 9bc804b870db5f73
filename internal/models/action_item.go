package models

import (
	"strings"
	"time"
)

// ActionStatus is the state of a follow-up action item.
type ActionStatus string

const (
	ActionOpen       ActionStatus = "Open"
	ActionInProgress ActionStatus = "In Progress"
	ActionCompleted  ActionStatus = "Completed"
	ActionCancelled  ActionStatus = "Cancelled"
)

// ParseActionStatus matches a status name case-insensitively. Underscores
// are accepted for the space in "In Progress".
func ParseActionStatus(v string) (ActionStatus, bool) {
	v = strings.ReplaceAll(strings.TrimSpace(v), "_", " ")
	for _, s := range []ActionStatus{ActionOpen, ActionInProgress, ActionCompleted, ActionCancelled} {
		if strings.EqualFold(string(s), v) {
			return s, true
		}
	}
	return "", false
}

// Priority is the urgency of an action item.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority matches a priority name case-insensitively.
func ParsePriority(v string) (Priority, bool) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if strings.EqualFold(string(p), strings.TrimSpace(v)) {
			return p, true
		}
	}
	return "", false
}

// ActionItem is a follow-up task, usually raised from an incident review.
type ActionItem struct {
	ID          int64        `json:"id"`
	IncidentID  *int64       `json:"incident_id,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      ActionStatus `json:"status"`
	Priority    Priority     `json:"priority"`
	AssignedTo  string       `json:"assigned_to,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

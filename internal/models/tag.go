package models

import "time"

// Tag labels incidents for filtering.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Template pre-fills a new incident.
type Template struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Severity    Severity  `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredSession is a server-side login session.
type StoredSession struct {
	ID          string    `json:"-"`
	UserID      int64     `json:"user_id"`
	Role        Role      `json:"role"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsExpired reports whether the session has expired at now.
func (s *StoredSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

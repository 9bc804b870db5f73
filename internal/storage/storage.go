// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open(ctx context.Context) error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate(ctx context.Context) error
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
	// EnsureAdminUser creates an administrator with a random password when no
	// users exist, and writes the credentials to out.
	EnsureAdminUser(ctx context.Context, out io.Writer) error

	// Repository accessors
	Users() UserRepository
	Incidents() IncidentRepository
	Tags() TagRepository
	ActionItems() ActionItemRepository
	Templates() TemplateRepository
	Sessions() SessionRepository
}

// UserRepository defines operations for user management. Lookups return
// (nil, nil) when the user does not exist; the user's role is loaded with it.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
	Roles(ctx context.Context) ([]models.RoleInfo, error)
}

// IncidentFilter selects incidents for a listing page.
type IncidentFilter struct {
	Status       *models.Status
	Severity     *models.Severity
	HideResolved bool
	TagIDs       []int64 // any-of
	Limit        int
	Offset       int
}

// IncidentRepository defines operations for incidents and their timelines.
// Reads outside a transaction go through the repository; read-modify-write
// sequences go through WithTx.
type IncidentRepository interface {
	// WithTx runs fn in one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx IncidentTx) error) error
	GetByID(ctx context.Context, id int64) (*models.Incident, error)
	// List returns one page of incidents matching filter and the total
	// number of matches before paging.
	List(ctx context.Context, filter IncidentFilter) ([]*models.Incident, int64, error)
	Timeline(ctx context.Context, incidentID int64) ([]models.TimelineEvent, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// IncidentTx is the set of incident operations available inside WithTx.
type IncidentTx interface {
	Create(ctx context.Context, incident *models.Incident) error
	// GetForUpdate loads an incident, locking the row where the database
	// supports it. Returns (nil, nil) when missing.
	GetForUpdate(ctx context.Context, id int64) (*models.Incident, error)
	Update(ctx context.Context, incident *models.Incident) error
	AppendEvents(ctx context.Context, events []*models.TimelineEvent) error
	TagIDs(ctx context.Context, incidentID int64) ([]int64, error)
	AddTags(ctx context.Context, incidentID int64, tagIDs []int64) error
	RemoveTags(ctx context.Context, incidentID int64, tagIDs []int64) error
	TagNames(ctx context.Context, tagIDs []int64) (map[int64]string, error)
}

// TagRepository defines operations for tags.
type TagRepository interface {
	Create(ctx context.Context, tag *models.Tag) error
	GetByID(ctx context.Context, id int64) (*models.Tag, error)
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	List(ctx context.Context) ([]*models.Tag, error)
	ListForIncident(ctx context.Context, incidentID int64) ([]models.Tag, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// ActionItemRepository defines operations for follow-up action items.
type ActionItemRepository interface {
	Create(ctx context.Context, item *models.ActionItem) error
	GetByID(ctx context.Context, id int64) (*models.ActionItem, error)
	Update(ctx context.Context, item *models.ActionItem) error
	// List returns items for one incident, or every item when incidentID is nil.
	List(ctx context.Context, incidentID *int64) ([]*models.ActionItem, error)
	ListUnassigned(ctx context.Context) ([]*models.ActionItem, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// TemplateRepository defines operations for incident templates.
type TemplateRepository interface {
	Create(ctx context.Context, tmpl *models.Template) error
	GetByID(ctx context.Context, id int64) (*models.Template, error)
	GetByName(ctx context.Context, name string) (*models.Template, error)
	List(ctx context.Context) ([]*models.Template, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// SessionRepository defines operations for server-side login sessions.
type SessionRepository interface {
	Create(ctx context.Context, sess *models.StoredSession) error
	Get(ctx context.Context, id string) (*models.StoredSession, error)
	Touch(ctx context.Context, id string, lastSeen, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

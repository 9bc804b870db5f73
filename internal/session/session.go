// Package session issues and validates login sessions for authenticated
// users.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

// DefaultTTL is the sliding session lifetime.
const DefaultTTL = 8 * time.Hour

// ErrInvalidSession is returned for missing, malformed, expired or revoked
// sessions.
var ErrInvalidSession = errors.New("invalid session")

// Claims are the facts a session attests about its user.
type Claims struct {
	UserID      int64       `json:"uid"`
	Role        models.Role `json:"role"`
	Username    string      `json:"usr"`
	DisplayName string      `json:"name,omitempty"`
	IssuedAt    time.Time   `json:"-"`
	ExpiresAt   time.Time   `json:"-"`
}

// Token is an issued session value and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer creates and checks sessions.
type Issuer interface {
	// Issue starts a session for claims.
	Issue(ctx context.Context, claims Claims) (*Token, error)
	// Validate returns the claims of a live session.
	Validate(ctx context.Context, value string) (*Claims, error)
	// Refresh extends a session when less than half of its lifetime is
	// left. It returns nil when no renewal is due.
	Refresh(ctx context.Context, value string, claims *Claims) (*Token, error)
	// Revoke ends a session. Revoking an unknown session is not an error.
	Revoke(ctx context.Context, value string) error
	// TTL returns the session lifetime.
	TTL() time.Duration
}

// renewalDue reports whether less than half of ttl remains before expiresAt.
func renewalDue(now, expiresAt time.Time, ttl time.Duration) bool {
	return expiresAt.Sub(now) < ttl/2
}

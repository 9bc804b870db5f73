package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/good-yellow-bee/incidentdesk/internal/metrics"
	"github.com/good-yellow-bee/incidentdesk/internal/models"
	"github.com/good-yellow-bee/incidentdesk/internal/storage"
)

const sessionIDBytes = 32

// StoreIssuer keeps sessions server-side. Clients hold an opaque random id;
// only its SHA-256 hash is stored.
type StoreIssuer struct {
	sessions storage.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewStoreIssuer creates a store-backed issuer. A zero ttl selects
// DefaultTTL.
func NewStoreIssuer(sessions storage.SessionRepository, ttl time.Duration) *StoreIssuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StoreIssuer{sessions: sessions, ttl: ttl, now: time.Now}
}

// Issue creates and stores a new session.
func (s *StoreIssuer) Issue(ctx context.Context, claims Claims) (*Token, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	value := base64.RawURLEncoding.EncodeToString(buf)

	now := s.now().UTC().Truncate(time.Microsecond)
	sess := &models.StoredSession{
		ID:          hashID(value),
		UserID:      claims.UserID,
		Role:        claims.Role,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		CreatedAt:   now,
		LastSeenAt:  now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	metrics.SessionsIssuedTotal.WithLabelValues("store").Inc()
	return &Token{Value: value, ExpiresAt: sess.ExpiresAt}, nil
}

// Validate looks up a live session. Expired sessions are deleted.
func (s *StoreIssuer) Validate(ctx context.Context, value string) (*Claims, error) {
	if value == "" {
		return nil, ErrInvalidSession
	}
	id := hashID(value)
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if sess == nil {
		return nil, ErrInvalidSession
	}
	if sess.IsExpired(s.now()) {
		if err := s.sessions.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		return nil, fmt.Errorf("%w: expired", ErrInvalidSession)
	}

	return &Claims{
		UserID:      sess.UserID,
		Role:        sess.Role,
		Username:    sess.Username,
		DisplayName: sess.DisplayName,
		IssuedAt:    sess.CreatedAt,
		ExpiresAt:   sess.ExpiresAt,
	}, nil
}

// Refresh slides the stored expiry forward once half of the lifetime has
// passed. The session value does not change.
func (s *StoreIssuer) Refresh(ctx context.Context, value string, claims *Claims) (*Token, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	if !renewalDue(now, claims.ExpiresAt, s.ttl) {
		return nil, nil
	}
	expiresAt := now.Add(s.ttl)
	if err := s.sessions.Touch(ctx, hashID(value), now, expiresAt); err != nil {
		return nil, fmt.Errorf("extend session: %w", err)
	}
	claims.ExpiresAt = expiresAt
	return &Token{Value: value, ExpiresAt: expiresAt}, nil
}

// Revoke deletes the session.
func (s *StoreIssuer) Revoke(ctx context.Context, value string) error {
	if value == "" {
		return nil
	}
	return s.sessions.Delete(ctx, hashID(value))
}

// RevokeUser deletes every session of a user.
func (s *StoreIssuer) RevokeUser(ctx context.Context, userID int64) (int64, error) {
	return s.sessions.DeleteForUser(ctx, userID)
}

// TTL returns the session lifetime.
func (s *StoreIssuer) TTL() time.Duration {
	return s.ttl
}

func hashID(value string) string {
	sum := sha256.Sum256([]byte(value))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

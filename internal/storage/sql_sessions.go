package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

type sqlSessionRepo struct {
	q dbtx
}

func (r *sqlSessionRepo) Create(ctx context.Context, sess *models.StoredSession) error {
	query := `
		INSERT INTO sessions (id, user_id, role_id, username, display_name, created_at, last_seen_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.exec(ctx, query,
		sess.ID, sess.UserID, sess.Role.ID(), sess.Username, nullString(sess.DisplayName),
		sess.CreatedAt.UTC(), sess.LastSeenAt.UTC(), sess.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sqlSessionRepo) Get(ctx context.Context, id string) (*models.StoredSession, error) {
	query := `
		SELECT id, user_id, role_id, username, display_name, created_at, last_seen_at, expires_at
		FROM sessions WHERE id = ?`
	var (
		sess        models.StoredSession
		roleID      int64
		displayName sql.NullString
	)
	err := r.q.queryRow(ctx, query, id).Scan(
		&sess.ID, &sess.UserID, &roleID, &sess.Username, &displayName,
		&sess.CreatedAt, &sess.LastSeenAt, &sess.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.Role = models.RoleFromID(roleID)
	sess.DisplayName = displayName.String
	sess.CreatedAt = sess.CreatedAt.UTC()
	sess.LastSeenAt = sess.LastSeenAt.UTC()
	sess.ExpiresAt = sess.ExpiresAt.UTC()
	return &sess, nil
}

func (r *sqlSessionRepo) Touch(ctx context.Context, id string, lastSeen, expiresAt time.Time) error {
	_, err := r.q.exec(ctx,
		"UPDATE sessions SET last_seen_at = ?, expires_at = ? WHERE id = ?",
		lastSeen.UTC(), expiresAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *sqlSessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.exec(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *sqlSessionRepo) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.q.exec(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *sqlSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.exec(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

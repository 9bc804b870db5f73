package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

type sqlTagRepo struct {
	q dbtx
}

func (r *sqlTagRepo) Create(ctx context.Context, tag *models.Tag) error {
	id, err := r.q.insert(ctx,
		"INSERT INTO tags (name, color, created_at) VALUES (?, ?, ?)",
		tag.Name, nullString(tag.Color), tag.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	tag.ID = id
	return nil
}

func (r *sqlTagRepo) GetByID(ctx context.Context, id int64) (*models.Tag, error) {
	tag, err := scanTag(r.q.queryRow(ctx, "SELECT id, name, color, created_at FROM tags WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tag by id: %w", err)
	}
	return tag, nil
}

func (r *sqlTagRepo) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	tag, err := scanTag(r.q.queryRow(ctx, "SELECT id, name, color, created_at FROM tags WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tag by name: %w", err)
	}
	return tag, nil
}

func (r *sqlTagRepo) List(ctx context.Context) ([]*models.Tag, error) {
	rows, err := r.q.query(ctx, "SELECT id, name, color, created_at FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *sqlTagRepo) ListForIncident(ctx context.Context, incidentID int64) ([]models.Tag, error) {
	tags, err := loadIncidentTags(ctx, r.q, []int64{incidentID})
	if err != nil {
		return nil, err
	}
	return tags[incidentID], nil
}

func (r *sqlTagRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.q.exec(ctx, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete tag: %w", err)
	}
	return rowsAffected(res)
}

func scanTag(row rowScanner) (*models.Tag, error) {
	var (
		tag   models.Tag
		color sql.NullString
	)
	if err := row.Scan(&tag.ID, &tag.Name, &color, &tag.CreatedAt); err != nil {
		return nil, err
	}
	tag.Color = color.String
	tag.CreatedAt = tag.CreatedAt.UTC()
	return &tag, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

type sqlTemplateRepo struct {
	q dbtx
}

const templateColumns = " id, name, title, description, severity, created_at FROM incident_templates"

func (r *sqlTemplateRepo) Create(ctx context.Context, tmpl *models.Template) error {
	id, err := r.q.insert(ctx,
		"INSERT INTO incident_templates (name, title, description, severity, created_at) VALUES (?, ?, ?, ?, ?)",
		tmpl.Name, tmpl.Title, nullString(tmpl.Description), string(tmpl.Severity), tmpl.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	tmpl.ID = id
	return nil
}

func (r *sqlTemplateRepo) GetByID(ctx context.Context, id int64) (*models.Template, error) {
	tmpl, err := scanTemplate(r.q.queryRow(ctx, "SELECT"+templateColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template by id: %w", err)
	}
	return tmpl, nil
}

func (r *sqlTemplateRepo) GetByName(ctx context.Context, name string) (*models.Template, error) {
	tmpl, err := scanTemplate(r.q.queryRow(ctx, "SELECT"+templateColumns+" WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template by name: %w", err)
	}
	return tmpl, nil
}

func (r *sqlTemplateRepo) List(ctx context.Context) ([]*models.Template, error) {
	rows, err := r.q.query(ctx, "SELECT"+templateColumns+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, tmpl)
	}
	return templates, rows.Err()
}

func (r *sqlTemplateRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.q.exec(ctx, "DELETE FROM incident_templates WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete template: %w", err)
	}
	return rowsAffected(res)
}

func scanTemplate(row rowScanner) (*models.Template, error) {
	var (
		tmpl        models.Template
		description sql.NullString
		severity    string
	)
	if err := row.Scan(&tmpl.ID, &tmpl.Name, &tmpl.Title, &description, &severity, &tmpl.CreatedAt); err != nil {
		return nil, err
	}
	tmpl.Description = description.String
	tmpl.Severity = models.Severity(severity)
	tmpl.CreatedAt = tmpl.CreatedAt.UTC()
	return &tmpl, nil
}

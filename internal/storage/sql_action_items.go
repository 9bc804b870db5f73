package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

type sqlActionItemRepo struct {
	q dbtx
}

const actionItemColumns = `
	id, incident_id, title, description, status, priority, assigned_to,
	due_date, created_at, completed_at
	FROM action_items`

func (r *sqlActionItemRepo) Create(ctx context.Context, item *models.ActionItem) error {
	query := `
		INSERT INTO action_items (incident_id, title, description, status, priority, assigned_to,
			due_date, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := r.q.insert(ctx, query,
		nullInt64(item.IncidentID), item.Title, nullString(item.Description),
		string(item.Status), string(item.Priority), nullString(item.AssignedTo),
		nullTime(item.DueDate), item.CreatedAt.UTC(), nullTime(item.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert action item: %w", err)
	}
	item.ID = id
	return nil
}

func (r *sqlActionItemRepo) GetByID(ctx context.Context, id int64) (*models.ActionItem, error) {
	item, err := scanActionItem(r.q.queryRow(ctx, "SELECT"+actionItemColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get action item: %w", err)
	}
	return item, nil
}

func (r *sqlActionItemRepo) Update(ctx context.Context, item *models.ActionItem) error {
	query := `
		UPDATE action_items SET title = ?, description = ?, status = ?, priority = ?,
			assigned_to = ?, due_date = ?, completed_at = ?
		WHERE id = ?`
	_, err := r.q.exec(ctx, query,
		item.Title, nullString(item.Description), string(item.Status), string(item.Priority),
		nullString(item.AssignedTo), nullTime(item.DueDate), nullTime(item.CompletedAt), item.ID,
	)
	if err != nil {
		return fmt.Errorf("update action item: %w", err)
	}
	return nil
}

func (r *sqlActionItemRepo) List(ctx context.Context, incidentID *int64) ([]*models.ActionItem, error) {
	query := "SELECT" + actionItemColumns
	var args []any
	if incidentID != nil {
		query += " WHERE incident_id = ?"
		args = append(args, *incidentID)
	}
	query += " ORDER BY created_at ASC, id ASC"
	return r.list(ctx, query, args...)
}

func (r *sqlActionItemRepo) ListUnassigned(ctx context.Context) ([]*models.ActionItem, error) {
	return r.list(ctx, "SELECT"+actionItemColumns+" WHERE incident_id IS NULL ORDER BY created_at ASC, id ASC")
}

func (r *sqlActionItemRepo) list(ctx context.Context, query string, args ...any) ([]*models.ActionItem, error) {
	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list action items: %w", err)
	}
	defer rows.Close()

	var items []*models.ActionItem
	for rows.Next() {
		item, err := scanActionItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *sqlActionItemRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.q.exec(ctx, "DELETE FROM action_items WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete action item: %w", err)
	}
	return rowsAffected(res)
}

func scanActionItem(row rowScanner) (*models.ActionItem, error) {
	var (
		item                    models.ActionItem
		incidentID              sql.NullInt64
		description, assignedTo sql.NullString
		status, priority        string
		dueDate, completedAt    sql.NullTime
	)
	err := row.Scan(
		&item.ID, &incidentID, &item.Title, &description, &status, &priority, &assignedTo,
		&dueDate, &item.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	item.IncidentID = int64Ptr(incidentID)
	item.Description = description.String
	item.Status = models.ActionStatus(status)
	item.Priority = models.Priority(priority)
	item.AssignedTo = assignedTo.String
	item.DueDate = timePtr(dueDate)
	item.CreatedAt = item.CreatedAt.UTC()
	item.CompletedAt = timePtr(completedAt)
	return &item, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

type sqlIncidentRepo struct {
	db *sql.DB
	q  dbtx
}

const incidentColumns = `
	i.id, i.title, i.description, i.severity, i.status, i.occurred_at, i.created_at,
	i.resolved_at, i.root_cause, i.impact, i.resolved_by`

// incidentOrder sorts by severity (Critical first), then status (Open
// first), then newest occurrence. The id breaks remaining ties so paging
// is stable.
var incidentOrder = func() string {
	var sev, st strings.Builder
	sev.WriteString("CASE i.severity")
	for _, s := range models.Severities() {
		fmt.Fprintf(&sev, " WHEN '%s' THEN %d", s, s.Rank())
	}
	sev.WriteString(" ELSE 4 END")
	st.WriteString("CASE i.status")
	for _, s := range models.Statuses() {
		fmt.Fprintf(&st, " WHEN '%s' THEN %d", s, s.Rank())
	}
	st.WriteString(" ELSE 4 END")
	return sev.String() + ", " + st.String() + ", i.occurred_at DESC, i.id ASC"
}()

func (r *sqlIncidentRepo) WithTx(ctx context.Context, fn func(tx IncidentTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&sqlIncidentTx{q: dbtx{q: tx, dialect: r.q.dialect}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *sqlIncidentRepo) GetByID(ctx context.Context, id int64) (*models.Incident, error) {
	incident, err := scanIncident(r.q.queryRow(ctx, "SELECT"+incidentColumns+" FROM incidents i WHERE i.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}

	tags, err := loadIncidentTags(ctx, r.q, []int64{id})
	if err != nil {
		return nil, err
	}
	incident.Tags = tags[id]
	return incident, nil
}

func buildIncidentWhere(f IncidentFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != nil {
		conds = append(conds, "i.status = ?")
		args = append(args, string(*f.Status))
	} else if f.HideResolved {
		conds = append(conds, "i.status <> ?")
		args = append(args, string(models.StatusResolved))
	}
	if f.Severity != nil {
		conds = append(conds, "i.severity = ?")
		args = append(args, string(*f.Severity))
	}
	if len(f.TagIDs) > 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM incident_tags it WHERE it.incident_id = i.id AND it.tag_id IN ("+placeholders(len(f.TagIDs))+"))")
		args = append(args, int64Args(f.TagIDs)...)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *sqlIncidentRepo) List(ctx context.Context, filter IncidentFilter) ([]*models.Incident, int64, error) {
	where, args := buildIncidentWhere(filter)

	var total int64
	if err := r.q.queryRow(ctx, "SELECT COUNT(*) FROM incidents i"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}

	query := "SELECT" + incidentColumns + " FROM incidents i" + where + " ORDER BY " + incidentOrder
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var (
		incidents []*models.Incident
		ids       []int64
	)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, incident)
		ids = append(ids, incident.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate incidents: %w", err)
	}
	rows.Close()

	tags, err := loadIncidentTags(ctx, r.q, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, incident := range incidents {
		incident.Tags = tags[incident.ID]
	}
	return incidents, total, nil
}

func (r *sqlIncidentRepo) Timeline(ctx context.Context, incidentID int64) ([]models.TimelineEvent, error) {
	query := `
		SELECT id, incident_id, occurred_at, description, author
		FROM timeline_events WHERE incident_id = ?
		ORDER BY occurred_at ASC, id ASC`
	rows, err := r.q.query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	var events []models.TimelineEvent
	for rows.Next() {
		var (
			ev     models.TimelineEvent
			author sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.IncidentID, &ev.OccurredAt, &ev.Description, &author); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		ev.Author = author.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *sqlIncidentRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.q.exec(ctx, "DELETE FROM incidents WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete incident: %w", err)
	}
	return rowsAffected(res)
}

func (r *sqlIncidentRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.queryRow(ctx, "SELECT COUNT(*) FROM incidents").Scan(&count); err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return count, nil
}

type sqlIncidentTx struct {
	q dbtx
}

func (t *sqlIncidentTx) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (title, description, severity, status, occurred_at, created_at,
			resolved_at, root_cause, impact, resolved_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := t.q.insert(ctx, query,
		incident.Title, incident.Description, string(incident.Severity), string(incident.Status),
		incident.OccurredAt.UTC(), incident.CreatedAt.UTC(), nullTime(incident.ResolvedAt),
		nullString(incident.RootCause), nullString(incident.Impact), nullInt64(incident.ResolvedBy),
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	incident.ID = id
	return nil
}

func (t *sqlIncidentTx) GetForUpdate(ctx context.Context, id int64) (*models.Incident, error) {
	query := "SELECT" + incidentColumns + " FROM incidents i WHERE i.id = ?"
	if t.q.dialect == DialectPostgres {
		query += " FOR UPDATE"
	}
	incident, err := scanIncident(t.q.queryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get incident for update: %w", err)
	}
	return incident, nil
}

func (t *sqlIncidentTx) Update(ctx context.Context, incident *models.Incident) error {
	query := `
		UPDATE incidents SET title = ?, description = ?, severity = ?, status = ?, occurred_at = ?,
			resolved_at = ?, root_cause = ?, impact = ?, resolved_by = ?
		WHERE id = ?`
	_, err := t.q.exec(ctx, query,
		incident.Title, incident.Description, string(incident.Severity), string(incident.Status),
		incident.OccurredAt.UTC(), nullTime(incident.ResolvedAt),
		nullString(incident.RootCause), nullString(incident.Impact), nullInt64(incident.ResolvedBy),
		incident.ID,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

func (t *sqlIncidentTx) AppendEvents(ctx context.Context, events []*models.TimelineEvent) error {
	query := `
		INSERT INTO timeline_events (incident_id, occurred_at, description, author)
		VALUES (?, ?, ?, ?)`
	for _, ev := range events {
		id, err := t.q.insert(ctx, query, ev.IncidentID, ev.OccurredAt.UTC(), ev.Description, nullString(ev.Author))
		if err != nil {
			return fmt.Errorf("insert timeline event: %w", err)
		}
		ev.ID = id
	}
	return nil
}

func (t *sqlIncidentTx) TagIDs(ctx context.Context, incidentID int64) ([]int64, error) {
	rows, err := t.q.query(ctx, "SELECT tag_id FROM incident_tags WHERE incident_id = ? ORDER BY tag_id", incidentID)
	if err != nil {
		return nil, fmt.Errorf("query incident tags: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan incident tag: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *sqlIncidentTx) AddTags(ctx context.Context, incidentID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		_, err := t.q.exec(ctx,
			"INSERT INTO incident_tags (incident_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			incidentID, tagID)
		if err != nil {
			return fmt.Errorf("add incident tag: %w", err)
		}
	}
	return nil
}

func (t *sqlIncidentTx) RemoveTags(ctx context.Context, incidentID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	args := append([]any{incidentID}, int64Args(tagIDs)...)
	_, err := t.q.exec(ctx,
		"DELETE FROM incident_tags WHERE incident_id = ? AND tag_id IN ("+placeholders(len(tagIDs))+")",
		args...)
	if err != nil {
		return fmt.Errorf("remove incident tags: %w", err)
	}
	return nil
}

func (t *sqlIncidentTx) TagNames(ctx context.Context, tagIDs []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(tagIDs))
	if len(tagIDs) == 0 {
		return names, nil
	}
	rows, err := t.q.query(ctx,
		"SELECT id, name FROM tags WHERE id IN ("+placeholders(len(tagIDs))+")",
		int64Args(tagIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query tag names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan tag name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

func scanIncident(row rowScanner) (*models.Incident, error) {
	var (
		incident          models.Incident
		severity, status  string
		resolvedAt        sql.NullTime
		rootCause, impact sql.NullString
		resolvedBy        sql.NullInt64
	)
	err := row.Scan(
		&incident.ID, &incident.Title, &incident.Description, &severity, &status,
		&incident.OccurredAt, &incident.CreatedAt, &resolvedAt, &rootCause, &impact, &resolvedBy,
	)
	if err != nil {
		return nil, err
	}
	incident.Severity = models.Severity(severity)
	incident.Status = models.Status(status)
	incident.OccurredAt = incident.OccurredAt.UTC()
	incident.CreatedAt = incident.CreatedAt.UTC()
	incident.ResolvedAt = timePtr(resolvedAt)
	incident.RootCause = rootCause.String
	incident.Impact = impact.String
	incident.ResolvedBy = int64Ptr(resolvedBy)
	return &incident, nil
}

// loadIncidentTags returns the tags of each incident, ordered by name.
func loadIncidentTags(ctx context.Context, q dbtx, incidentIDs []int64) (map[int64][]models.Tag, error) {
	result := make(map[int64][]models.Tag, len(incidentIDs))
	if len(incidentIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT it.incident_id, t.id, t.name, t.color, t.created_at
		FROM incident_tags it JOIN tags t ON t.id = it.tag_id
		WHERE it.incident_id IN (` + placeholders(len(incidentIDs)) + `)
		ORDER BY t.name`
	rows, err := q.query(ctx, query, int64Args(incidentIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query incident tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			incidentID int64
			tag        models.Tag
			color      sql.NullString
		)
		if err := rows.Scan(&incidentID, &tag.ID, &tag.Name, &color, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan incident tag: %w", err)
		}
		tag.Color = color.String
		tag.CreatedAt = tag.CreatedAt.UTC()
		result[incidentID] = append(result[incidentID], tag)
	}
	return result, rows.Err()
}

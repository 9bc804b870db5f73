package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

type sqlUserRepo struct {
	q dbtx
}

const userColumns = `
	u.id, u.username, u.email, u.full_name, r.id, u.active,
	u.password_hash, u.salt, u.created_at, u.updated_at
	FROM users u LEFT JOIN roles r ON r.id = u.role_id`

func (r *sqlUserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, full_name, role_id, active, password_hash, salt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := r.q.insert(ctx, query,
		user.Username, nullString(user.Email), nullString(user.FullName), roleID(user.Role),
		nullBool(user.Active), user.PasswordHash, user.Salt,
		user.CreatedAt.UTC(), user.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	return nil
}

func (r *sqlUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(r.q.queryRow(ctx, "SELECT"+userColumns+" WHERE u.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *sqlUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := scanUser(r.q.queryRow(ctx, "SELECT"+userColumns+" WHERE u.username = ?", username))
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

func (r *sqlUserRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET email = ?, full_name = ?, role_id = ?, active = ?,
			password_hash = ?, salt = ?, updated_at = ?
		WHERE id = ?`
	_, err := r.q.exec(ctx, query,
		nullString(user.Email), nullString(user.FullName), roleID(user.Role), nullBool(user.Active),
		user.PasswordHash, user.Salt, user.UpdatedAt.UTC(), user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *sqlUserRepo) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.q.query(ctx, "SELECT"+userColumns+" ORDER BY u.username")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *sqlUserRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.queryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *sqlUserRepo) Roles(ctx context.Context) ([]models.RoleInfo, error) {
	rows, err := r.q.query(ctx, "SELECT id, name, description FROM roles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []models.RoleInfo
	for rows.Next() {
		var (
			info models.RoleInfo
			desc sql.NullString
		)
		if err := rows.Scan(&info.ID, &info.Name, &desc); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		info.Description = desc.String
		roles = append(roles, info)
	}
	return roles, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user            models.User
		email, fullName sql.NullString
		role            sql.NullInt64
		active          sql.NullBool
	)
	err := row.Scan(
		&user.ID, &user.Username, &email, &fullName, &role, &active,
		&user.PasswordHash, &user.Salt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Email = email.String
	user.FullName = fullName.String
	user.Active = boolPtr(active)
	user.Role = models.RoleUnknown
	if role.Valid {
		user.Role = models.RoleFromID(role.Int64)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

func roleID(role models.Role) sql.NullInt64 {
	if !role.Valid() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: role.ID(), Valid: true}
}

package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	// PostgreSQL driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
	"github.com/good-yellow-bee/incidentdesk/internal/security"
)

// Dialect is the SQL flavour of the backing database.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Config selects and locates the database.
type Config struct {
	Driver Dialect // sqlite or postgres
	Path   string  // SQLite file path
	DSN    string  // PostgreSQL connection string
}

// SQLStorage implements Storage on database/sql for SQLite and PostgreSQL.
type SQLStorage struct {
	cfg Config
	db  *sql.DB

	users       *sqlUserRepo
	incidents   *sqlIncidentRepo
	tags        *sqlTagRepo
	actionItems *sqlActionItemRepo
	templates   *sqlTemplateRepo
	sessions    *sqlSessionRepo
}

// New creates a new SQL storage. Call Open before use.
func New(cfg Config) *SQLStorage {
	if cfg.Driver == "" {
		cfg.Driver = DialectSQLite
	}
	return &SQLStorage{cfg: cfg}
}

// NewSQLiteStorage is shorthand for a SQLite-backed storage at path.
func NewSQLiteStorage(path string) *SQLStorage {
	return New(Config{Driver: DialectSQLite, Path: path})
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite", path)
}

// Open initializes the database connection.
func (s *SQLStorage) Open(ctx context.Context) error {
	var (
		db  *sql.DB
		err error
	)

	switch s.cfg.Driver {
	case DialectSQLite:
		if s.cfg.Path == "" {
			return errors.New("database path is required")
		}
		db, err = sql.Open("sqlite", sqliteDSN(s.cfg.Path))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite is single-writer
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	case DialectPostgres:
		if s.cfg.DSN == "" {
			return errors.New("database dsn is required")
		}
		db, err = sql.Open("pgx", s.cfg.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	default:
		return fmt.Errorf("unsupported database driver %q", s.cfg.Driver)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	s.db = db
	q := dbtx{q: db, dialect: s.cfg.Driver}

	s.users = &sqlUserRepo{q: q}
	s.incidents = &sqlIncidentRepo{db: db, q: q}
	s.tags = &sqlTagRepo{q: q}
	s.actionItems = &sqlActionItemRepo{q: q}
	s.templates = &sqlTemplateRepo{q: q}
	s.sessions = &sqlSessionRepo{q: q}

	return nil
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *SQLStorage) DB() *sql.DB {
	return s.db
}

// Dialect returns the configured SQL dialect.
func (s *SQLStorage) Dialect() Dialect {
	return s.cfg.Driver
}

// Ping checks that the database is reachable.
func (s *SQLStorage) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("database not open")
	}
	return s.db.PingContext(ctx)
}

// EnsureAdminUser creates default admin if no users exist.
func (s *SQLStorage) EnsureAdminUser(ctx context.Context, out io.Writer) error {
	count, err := s.Users().Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil // Users exist, skip
	}

	password, err := generateRandomPassword(16)
	if err != nil {
		return err
	}
	hash, salt, err := security.NewCredentials(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := models.NewUser("admin", "admin@localhost", "Administrator", models.RoleAdministrator)
	admin.PasswordHash = hash
	admin.Salt = salt

	if err := s.Users().Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "===========================================\n")
	fmt.Fprintf(out, "  DEFAULT ADMIN USER CREATED\n")
	fmt.Fprintf(out, "  Username: admin\n")
	fmt.Fprintf(out, "  Password: %s\n", password)
	fmt.Fprintf(out, "  CHANGE THIS PASSWORD IMMEDIATELY!\n")
	fmt.Fprintf(out, "===========================================\n")
	fmt.Fprintf(out, "\n")

	return nil
}

// Users returns the user repository.
func (s *SQLStorage) Users() UserRepository {
	return s.users
}

// Incidents returns the incident repository.
func (s *SQLStorage) Incidents() IncidentRepository {
	return s.incidents
}

// Tags returns the tag repository.
func (s *SQLStorage) Tags() TagRepository {
	return s.tags
}

// ActionItems returns the action item repository.
func (s *SQLStorage) ActionItems() ActionItemRepository {
	return s.actionItems
}

// Templates returns the template repository.
func (s *SQLStorage) Templates() TemplateRepository {
	return s.templates
}

// Sessions returns the session repository.
func (s *SQLStorage) Sessions() SessionRepository {
	return s.sessions
}

// generateRandomPassword generates a random password that satisfies the
// provisioning complexity rules.
func generateRandomPassword(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length] + "Aa1!", nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dbtx runs queries written with ? placeholders against either dialect.
type dbtx struct {
	q       queryer
	dialect Dialect
}

func (d dbtx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.q.ExecContext(ctx, d.rebind(query), args...)
}

func (d dbtx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.q.QueryContext(ctx, d.rebind(query), args...)
}

func (d dbtx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.q.QueryRowContext(ctx, d.rebind(query), args...)
}

// insert runs an INSERT ... RETURNING id statement and returns the new id.
func (d dbtx) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := d.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func (d dbtx) rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/siriusuniversity/report-backend/model"
)

// timestamps are stored as fixed-width UTC text so that string order is time order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store on top of a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			login TEXT NOT NULL UNIQUE,
			is_admin INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			issue_key TEXT NOT NULL UNIQUE,
			queue_key TEXT NOT NULL,
			assignee TEXT NOT NULL,
			summary TEXT NOT NULL,
			form_type TEXT NOT NULL DEFAULT 'extended',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS tasks_assignee_created ON tasks (assignee, created_at)`,
		`CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			programs_supported INTEGER NOT NULL DEFAULT 0,
			projects_in_program INTEGER NOT NULL DEFAULT 0,
			new_scientists_employed INTEGER NOT NULL DEFAULT 0,
			publications_count INTEGER NOT NULL DEFAULT 0,
			programs_count INTEGER NOT NULL DEFAULT 0,
			events_count INTEGER NOT NULL DEFAULT 0,
			department TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			file_path TEXT NOT NULL DEFAULT '',
			issue_key TEXT NOT NULL DEFAULT '',
			attachment_id TEXT NOT NULL DEFAULT '',
			attachment_name TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS reports_username ON reports (username)`,
		`CREATE INDEX IF NOT EXISTS reports_created_at ON reports (created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Users

// GetUserByLogin returns ErrNotFound when no user has that login
func (s *SQLiteStore) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	var (
		u       model.User
		id      int64
		created string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, login, is_admin, created_at FROM users WHERE login = ?", login,
	).Scan(&id, &u.Login, &u.IsAdmin, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.Key = strconv.FormatInt(id, 10)
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// CreateUser inserts the user and fills in its key
func (s *SQLiteStore) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (login, is_admin, created_at) VALUES (?, ?, ?)",
		user.Login, user.IsAdmin, formatTime(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	user.Key = strconv.FormatInt(id, 10)
	return nil
}

// SetUserAdmin overwrites the cached admin flag
func (s *SQLiteStore) SetUserAdmin(ctx context.Context, login string, isAdmin bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET is_admin = ? WHERE login = ?", isAdmin, login)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns all users ordered by login
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, login, is_admin, created_at FROM users ORDER BY login")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var (
			u       model.User
			id      int64
			created string
		)
		if err := rows.Scan(&id, &u.Login, &u.IsAdmin, &created); err != nil {
			return nil, err
		}
		u.Key = strconv.FormatInt(id, 10)
		u.CreatedAt = parseTime(created)
		users = append(users, u)
	}
	return users, rows.Err()
}

// Tasks

const taskColumns = "id, issue_key, queue_key, assignee, summary, form_type, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		t        model.Task
		id       int64
		formType string
		created  string
	)
	if err := row.Scan(&id, &t.IssueKey, &t.QueueKey, &t.Assignee, &t.Summary, &formType, &created); err != nil {
		return nil, err
	}
	t.Key = strconv.FormatInt(id, 10)
	t.FormType = model.FormType(formType)
	t.CreatedAt = parseTime(created)
	return &t, nil
}

// CreateTask inserts an assignment row
func (s *SQLiteStore) CreateTask(ctx context.Context, task *model.Task) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.FormType == "" {
		task.FormType = model.FormTypeExtended
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks (issue_key, queue_key, assignee, summary, form_type, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		task.IssueKey, task.QueueKey, task.Assignee, task.Summary, string(task.FormType), formatTime(task.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	id, _ := res.LastInsertId()
	task.Key = strconv.FormatInt(id, 10)
	return nil
}

// LatestTaskForAssignee returns ErrNotFound when the user has no assignment
func (s *SQLiteStore) LatestTaskForAssignee(ctx context.Context, assignee string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE assignee = ? ORDER BY created_at DESC, id DESC LIMIT 1",
		assignee,
	)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks newest first; an empty assignee lists all of them
func (s *SQLiteStore) ListTasks(ctx context.Context, assignee string) ([]model.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks"
	var args []any
	if assignee != "" {
		query += " WHERE assignee = ?"
		args = append(args, assignee)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Reports

const reportColumns = `id, username, programs_supported, projects_in_program, new_scientists_employed,
	publications_count, programs_count, events_count, department, description, file_path,
	issue_key, attachment_id, attachment_name, created_at`

// CreateReport inserts the report and fills in its key
func (s *SQLiteStore) CreateReport(ctx context.Context, r *model.Report) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO reports (
			username, programs_supported, projects_in_program, new_scientists_employed,
			publications_count, programs_count, events_count, department, description, file_path,
			issue_key, attachment_id, attachment_name, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Username, r.ProgramsSupported, r.ProjectsInProgram, r.NewScientistsEmployed,
		r.PublicationsCount, r.ProgramsCount, r.EventsCount, r.Department, r.Description, r.FilePath,
		r.IssueKey, r.AttachmentID, r.AttachmentName, formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	id, _ := res.LastInsertId()
	r.Key = strconv.FormatInt(id, 10)
	return nil
}

// UpdateReportTracker stores the file path, issue key and first attachment
// of a report
func (s *SQLiteStore) UpdateReportTracker(ctx context.Context, r *model.Report) error {
	id, err := strconv.ParseInt(r.Key, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid report key %q: %w", r.Key, err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE reports SET file_path = ?, issue_key = ?, attachment_id = ?, attachment_name = ? WHERE id = ?",
		r.FilePath, r.IssueKey, r.AttachmentID, r.AttachmentName, id,
	)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReports returns reports newest first within the filter bounds
func (s *SQLiteStore) ListReports(ctx context.Context, filter model.ReportFilter) ([]model.Report, error) {
	var (
		where []string
		args  []any
	)
	if filter.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "created_at < ?")
		args = append(args, formatTime(*filter.To))
	}

	query := "SELECT " + reportColumns + " FROM reports"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var (
			r       model.Report
			id      int64
			created string
		)
		if err := rows.Scan(&id, &r.Username, &r.ProgramsSupported, &r.ProjectsInProgram, &r.NewScientistsEmployed,
			&r.PublicationsCount, &r.ProgramsCount, &r.EventsCount, &r.Department, &r.Description, &r.FilePath,
			&r.IssueKey, &r.AttachmentID, &r.AttachmentName, &created); err != nil {
			return nil, err
		}
		r.Key = strconv.FormatInt(id, 10)
		r.CreatedAt = parseTime(created)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)

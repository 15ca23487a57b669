package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/internal/config"
	"github.com/siriusuniversity/report-backend/model"
)

// ArangoStore implements Store on ArangoDB document collections
type ArangoStore struct {
	db  arangodb.Database
	log *zap.Logger
}

type indexConfig struct {
	Collection string
	IdxName    string
	IdxFields  []string
	Unique     bool
}

var arangoCollections = []string{"users", "tasks", "reports"}

var arangoIndexes = []indexConfig{
	{Collection: "users", IdxName: "users_login_unique", IdxFields: []string{"login"}, Unique: true},
	{Collection: "tasks", IdxName: "tasks_issue_key_unique", IdxFields: []string{"issue_key"}, Unique: true},
	{Collection: "tasks", IdxName: "tasks_assignee_created", IdxFields: []string{"assignee", "created_at"}},
	{Collection: "reports", IdxName: "reports_username", IdxFields: []string{"username"}},
	{Collection: "reports", IdxName: "reports_created_at", IdxFields: []string{"created_at"}},
}

func dbConnectionConfig(endpoint connection.Endpoint, dbuser string, dbpass string) connection.HttpConfiguration {
	return connection.HttpConfiguration{
		Authentication: connection.NewBasicAuth(dbuser, dbpass),
		Endpoint:       endpoint,
		ContentType:    connection.ApplicationJSON,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402
			},
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 90 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// OpenArango connects with exponential backoff, then makes sure the
// database, collections and indexes exist.
func OpenArango(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*ArangoStore, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 2 * time.Minute

	var client arangodb.Client
	err := backoff.RetryNotify(func() error {
		endpoint := connection.NewRoundRobinEndpoints([]string{cfg.ArangoURL})
		conn := connection.NewHttpConnection(dbConnectionConfig(endpoint, cfg.ArangoUser, cfg.ArangoPass))
		client = arangodb.NewClient(conn)

		versionInfo, err := client.Version(ctx)
		if err != nil {
			return err
		}
		log.Info("connected to ArangoDB",
			zap.String("version", string(versionInfo.Version)),
			zap.String("license", versionInfo.License))
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		log.Warn("retrying ArangoDB connection", zap.Error(err), zap.Duration("next", next))
	})
	if err != nil {
		return nil, fmt.Errorf("connect arangodb: %w", err)
	}

	db, err := ensureDatabase(ctx, client, cfg.ArangoDB)
	if err != nil {
		return nil, err
	}

	collections := make(map[string]arangodb.Collection, len(arangoCollections))
	for _, name := range arangoCollections {
		col, err := ensureCollection(ctx, db, name)
		if err != nil {
			return nil, err
		}
		collections[name] = col
	}

	False := false
	for _, idx := range arangoIndexes {
		unique := idx.Unique
		_, created, err := collections[idx.Collection].EnsurePersistentIndex(ctx, idx.IdxFields, &arangodb.CreatePersistentIndexOptions{
			Unique: &unique,
			Sparse: &False,
			Name:   idx.IdxName,
		})
		if err != nil {
			return nil, fmt.Errorf("create index %s: %w", idx.IdxName, err)
		}
		if created {
			log.Info("created index",
				zap.String("index", idx.IdxName),
				zap.String("collection", idx.Collection),
				zap.Strings("fields", idx.IdxFields))
		}
	}

	return &ArangoStore{db: db, log: log}, nil
}

func ensureDatabase(ctx context.Context, client arangodb.Client, name string) (arangodb.Database, error) {
	exists, err := client.DatabaseExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check database: %w", err)
	}
	if exists {
		db, err := client.GetDatabase(ctx, name, nil)
		if err != nil {
			return nil, fmt.Errorf("get database: %w", err)
		}
		return db, nil
	}
	db, err := client.CreateDatabase(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("create database: %w", err)
	}
	return db, nil
}

func ensureCollection(ctx context.Context, db arangodb.Database, name string) (arangodb.Collection, error) {
	exists, err := db.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		col, err := db.GetCollection(ctx, name, nil)
		if err != nil {
			return nil, fmt.Errorf("get collection %s: %w", name, err)
		}
		return col, nil
	}
	col, err := db.CreateCollectionV2(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	return col, nil
}

// Close is a no-op; the HTTP connection has no persistent state.
func (s *ArangoStore) Close() error {
	return nil
}

// query runs an AQL statement and decodes every returned row with decode
func (s *ArangoStore) query(ctx context.Context, aql string, bindVars map[string]interface{}, decode func(arangodb.Cursor) error) error {
	cursor, err := s.db.Query(ctx, aql, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return err
	}
	defer cursor.Close()

	for cursor.HasMore() {
		if err := decode(cursor); err != nil {
			return err
		}
	}
	return nil
}

// readKey runs a write statement that ends in RETURN NEW._key
func (s *ArangoStore) readKey(ctx context.Context, aql string, bindVars map[string]interface{}) (string, error) {
	var key string
	err := s.query(ctx, aql, bindVars, func(c arangodb.Cursor) error {
		_, err := c.ReadDocument(ctx, &key)
		return err
	})
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrNotFound
	}
	return key, nil
}

// Documents keep created_at as fixed-width text so AQL SORT and range
// filters compare correctly.

type userDoc struct {
	Key       string `json:"_key"`
	Login     string `json:"login"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

func (d userDoc) toModel() model.User {
	return model.User{Key: d.Key, Login: d.Login, IsAdmin: d.IsAdmin, CreatedAt: parseTime(d.CreatedAt)}
}

type taskDoc struct {
	Key       string `json:"_key"`
	IssueKey  string `json:"issue_key"`
	QueueKey  string `json:"queue_key"`
	Assignee  string `json:"assignee"`
	Summary   string `json:"summary"`
	FormType  string `json:"form_type"`
	CreatedAt string `json:"created_at"`
}

func (d taskDoc) toModel() model.Task {
	return model.Task{
		Key:       d.Key,
		IssueKey:  d.IssueKey,
		QueueKey:  d.QueueKey,
		Assignee:  d.Assignee,
		Summary:   d.Summary,
		FormType:  model.FormType(d.FormType),
		CreatedAt: parseTime(d.CreatedAt),
	}
}

type reportDoc struct {
	model.Report
	CreatedAt string `json:"created_at"`
}

// GetUserByLogin returns ErrNotFound when no user has that login
func (s *ArangoStore) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	var found *model.User
	err := s.query(ctx, `FOR u IN users FILTER u.login == @login LIMIT 1 RETURN u`,
		map[string]interface{}{"login": login},
		func(c arangodb.Cursor) error {
			var d userDoc
			if _, err := c.ReadDocument(ctx, &d); err != nil {
				return err
			}
			u := d.toModel()
			found = &u
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// CreateUser inserts the user and fills in its key
func (s *ArangoStore) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	key, err := s.readKey(ctx, `
		INSERT {
			login: @login,
			is_admin: @is_admin,
			created_at: @created_at
		} INTO users
		RETURN NEW._key
	`, map[string]interface{}{
		"login":      user.Login,
		"is_admin":   user.IsAdmin,
		"created_at": formatTime(user.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.Key = key
	return nil
}

// SetUserAdmin overwrites the cached admin flag
func (s *ArangoStore) SetUserAdmin(ctx context.Context, login string, isAdmin bool) error {
	_, err := s.readKey(ctx, `
		FOR u IN users
		FILTER u.login == @login
		UPDATE u WITH { is_admin: @is_admin } IN users
		RETURN NEW._key
	`, map[string]interface{}{"login": login, "is_admin": isAdmin})
	if err != nil && err != ErrNotFound {
		return fmt.Errorf("update user: %w", err)
	}
	return err
}

// ListUsers returns all users ordered by login
func (s *ArangoStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.query(ctx, `FOR u IN users SORT u.login RETURN u`, nil, func(c arangodb.Cursor) error {
		var d userDoc
		if _, err := c.ReadDocument(ctx, &d); err != nil {
			return err
		}
		users = append(users, d.toModel())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	return users, nil
}

// CreateTask inserts an assignment document
func (s *ArangoStore) CreateTask(ctx context.Context, task *model.Task) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.FormType == "" {
		task.FormType = model.FormTypeExtended
	}
	key, err := s.readKey(ctx, `
		INSERT {
			issue_key: @issue_key,
			queue_key: @queue_key,
			assignee: @assignee,
			summary: @summary,
			form_type: @form_type,
			created_at: @created_at
		} INTO tasks
		RETURN NEW._key
	`, map[string]interface{}{
		"issue_key":  task.IssueKey,
		"queue_key":  task.QueueKey,
		"assignee":   task.Assignee,
		"summary":    task.Summary,
		"form_type":  string(task.FormType),
		"created_at": formatTime(task.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	task.Key = key
	return nil
}

// Generated document keys are increasing integers, so TO_NUMBER(_key)
// breaks created_at ties by insertion order.

// LatestTaskForAssignee returns ErrNotFound when the user has no assignment
func (s *ArangoStore) LatestTaskForAssignee(ctx context.Context, assignee string) (*model.Task, error) {
	tasks, err := s.listTasks(ctx, assignee, 1)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return &tasks[0], nil
}

// ListTasks returns tasks newest first; an empty assignee lists all of them
func (s *ArangoStore) ListTasks(ctx context.Context, assignee string) ([]model.Task, error) {
	return s.listTasks(ctx, assignee, 0)
}

func (s *ArangoStore) listTasks(ctx context.Context, assignee string, limit int) ([]model.Task, error) {
	var aql strings.Builder
	bindVars := map[string]interface{}{}

	aql.WriteString("FOR t IN tasks\n")
	if assignee != "" {
		aql.WriteString("FILTER t.assignee == @assignee\n")
		bindVars["assignee"] = assignee
	}
	aql.WriteString("SORT t.created_at DESC, TO_NUMBER(t._key) DESC\n")
	if limit > 0 {
		aql.WriteString("LIMIT @limit\n")
		bindVars["limit"] = limit
	}
	aql.WriteString("RETURN t")

	var tasks []model.Task
	err := s.query(ctx, aql.String(), bindVars, func(c arangodb.Cursor) error {
		var d taskDoc
		if _, err := c.ReadDocument(ctx, &d); err != nil {
			return err
		}
		tasks = append(tasks, d.toModel())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	return tasks, nil
}

func reportBindVars(r *model.Report) map[string]interface{} {
	return map[string]interface{}{
		"username":                r.Username,
		"programs_supported":      r.ProgramsSupported,
		"projects_in_program":     r.ProjectsInProgram,
		"new_scientists_employed": r.NewScientistsEmployed,
		"publications_count":      r.PublicationsCount,
		"programs_count":          r.ProgramsCount,
		"events_count":            r.EventsCount,
		"department":              r.Department,
		"description":             r.Description,
		"file_path":               r.FilePath,
		"issue_key":               r.IssueKey,
		"attachment_id":           r.AttachmentID,
		"attachment_name":         r.AttachmentName,
		"created_at":              formatTime(r.CreatedAt),
	}
}

// CreateReport inserts the report and fills in its key
func (s *ArangoStore) CreateReport(ctx context.Context, r *model.Report) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	key, err := s.readKey(ctx, `
		INSERT {
			username: @username,
			programs_supported: @programs_supported,
			projects_in_program: @projects_in_program,
			new_scientists_employed: @new_scientists_employed,
			publications_count: @publications_count,
			programs_count: @programs_count,
			events_count: @events_count,
			department: @department,
			description: @description,
			file_path: @file_path,
			issue_key: @issue_key,
			attachment_id: @attachment_id,
			attachment_name: @attachment_name,
			created_at: @created_at
		} INTO reports
		RETURN NEW._key
	`, reportBindVars(r))
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	r.Key = key
	return nil
}

// UpdateReportTracker stores the file path, issue key and first attachment
// of a report
func (s *ArangoStore) UpdateReportTracker(ctx context.Context, r *model.Report) error {
	_, err := s.readKey(ctx, `
		UPDATE @key WITH {
			file_path: @file_path,
			issue_key: @issue_key,
			attachment_id: @attachment_id,
			attachment_name: @attachment_name
		} IN reports OPTIONS { ignoreErrors: true }
		RETURN NEW._key
	`, map[string]interface{}{
		"key":             r.Key,
		"file_path":       r.FilePath,
		"issue_key":       r.IssueKey,
		"attachment_id":   r.AttachmentID,
		"attachment_name": r.AttachmentName,
	})
	if err != nil && err != ErrNotFound {
		return fmt.Errorf("update report: %w", err)
	}
	return err
}

// ListReports returns reports newest first within the filter bounds
func (s *ArangoStore) ListReports(ctx context.Context, filter model.ReportFilter) ([]model.Report, error) {
	var aql strings.Builder
	bindVars := map[string]interface{}{}

	aql.WriteString("FOR r IN reports\n")
	if filter.From != nil {
		aql.WriteString("FILTER r.created_at >= @from\n")
		bindVars["from"] = formatTime(*filter.From)
	}
	if filter.To != nil {
		aql.WriteString("FILTER r.created_at < @to\n")
		bindVars["to"] = formatTime(*filter.To)
	}
	aql.WriteString("SORT r.created_at DESC, TO_NUMBER(r._key) DESC\nRETURN r")

	var reports []model.Report
	err := s.query(ctx, aql.String(), bindVars, func(c arangodb.Cursor) error {
		var d reportDoc
		if _, err := c.ReadDocument(ctx, &d); err != nil {
			return err
		}
		r := d.Report
		r.CreatedAt = parseTime(d.CreatedAt)
		reports = append(reports, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	return reports, nil
}

var _ Store = (*ArangoStore)(nil)

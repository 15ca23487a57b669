// Package database - persistence for users, task assignments and reports.
//
// Two backends implement Store: SQLite (default, relational tables) and
// ArangoDB (document collections). The rest of the code depends only on
// the interfaces below.
package database

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/internal/config"
	"github.com/siriusuniversity/report-backend/model"
)

// ErrNotFound is returned when a lookup matches no record
var ErrNotFound = errors.New("record not found")

// UserStore persists users keyed by normalized login
type UserStore interface {
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	SetUserAdmin(ctx context.Context, login string, isAdmin bool) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

// TaskStore persists task assignments.
//
// LatestTaskForAssignee is the only way to find "the active task": the row
// with the newest created_at for that assignee, ties broken by insertion
// order. There is no explicit close; closure lives in the tracker.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	LatestTaskForAssignee(ctx context.Context, assignee string) (*model.Task, error)
	ListTasks(ctx context.Context, assignee string) ([]model.Task, error)
}

// ReportStore persists submitted reports
type ReportStore interface {
	CreateReport(ctx context.Context, report *model.Report) error
	UpdateReportTracker(ctx context.Context, report *model.Report) error
	ListReports(ctx context.Context, filter model.ReportFilter) ([]model.Report, error)
}

// Store is the full persistence contract
type Store interface {
	UserStore
	TaskStore
	ReportStore
	Close() error
}

// Open connects to the backend selected by cfg.Driver
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case config.DriverArango:
		return OpenArango(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

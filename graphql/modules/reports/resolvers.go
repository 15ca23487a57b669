package reports

import (
	"context"
	"errors"

	"github.com/siriusuniversity/report-backend/database"
	"github.com/siriusuniversity/report-backend/model"
	"github.com/siriusuniversity/report-backend/util"
)

// ResolveReports lists reports created between from and to (YYYY-MM-DD,
// both inclusive). Malformed dates are ignored.
func ResolveReports(ctx context.Context, store database.ReportStore, from, to string) ([]model.Report, error) {
	reports, err := store.ListReports(ctx, model.ReportFilter{
		From: util.ParseDateFrom(from),
		To:   util.ParseDateTo(to),
	})
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []model.Report{}
	}
	return reports, nil
}

// ResolveTasks lists assignments, all of them when assignee is empty
func ResolveTasks(ctx context.Context, store database.TaskStore, assignee string) ([]model.Task, error) {
	tasks, err := store.ListTasks(ctx, util.NormalizeLogin(assignee))
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// ResolveLatestTask returns the active assignment, or nil
func ResolveLatestTask(ctx context.Context, store database.TaskStore, assignee string) (*model.Task, error) {
	task, err := store.LatestTaskForAssignee(ctx, util.NormalizeLogin(assignee))
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return task, err
}

// ResolveUsers lists every known user
func ResolveUsers(ctx context.Context, store database.UserStore) ([]model.User, error) {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

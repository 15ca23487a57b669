// Package admin implements the REST API handlers for the admin console.
// Every handler here must be mounted behind auth.RequireAuth and auth.AdminOnly.
package admin

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/siriusuniversity/report-backend/internal/services"
	"github.com/siriusuniversity/report-backend/internal/tracker"
	"github.com/siriusuniversity/report-backend/model"
	"github.com/siriusuniversity/report-backend/util"
)

// ReportLister lists submitted reports
type ReportLister interface {
	List(ctx context.Context, filter model.ReportFilter) ([]model.Report, error)
}

// UserLister lists known users
type UserLister interface {
	ListUsers(ctx context.Context) ([]model.User, error)
}

// QueueDirectory reads queues and their teams from the tracker
type QueueDirectory interface {
	ListQueues(ctx context.Context) ([]tracker.Queue, error)
	QueueTeam(ctx context.Context, queueKey string) ([]tracker.TeamMember, error)
}

// BatchCreator creates report assignments
type BatchCreator interface {
	CreateBatch(ctx context.Context, req services.BatchRequest) ([]string, error)
}

// ListReports handles GET /admin/reports?from=YYYY-MM-DD&to=YYYY-MM-DD.
// Malformed dates are ignored.
func ListReports(svc ReportLister) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := model.ReportFilter{
			From: util.ParseDateFrom(c.Query("from")),
			To:   util.ParseDateTo(c.Query("to")),
		}
		reports, err := svc.List(c.UserContext(), filter)
		if err != nil {
			return err
		}
		if reports == nil {
			reports = []model.Report{}
		}
		return c.JSON(reports)
	}
}

// ListUsers handles GET /admin/users
func ListUsers(store UserLister) fiber.Handler {
	return func(c *fiber.Ctx) error {
		users, err := store.ListUsers(c.UserContext())
		if err != nil {
			return err
		}
		out := make([]UserEntry, 0, len(users))
		for _, u := range users {
			out = append(out, UserEntry{Login: u.Login, IsAdmin: u.IsAdmin})
		}
		return c.JSON(out)
	}
}

// ListQueues handles GET /tracker/queues
func ListQueues(dir QueueDirectory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		queues, err := dir.ListQueues(c.UserContext())
		if err != nil {
			return err
		}
		out := make([]QueueEntry, 0, len(queues))
		for _, q := range queues {
			out = append(out, QueueEntry{Key: q.Key, Name: q.Label()})
		}
		return c.JSON(out)
	}
}

// ListQueueUsers handles GET /tracker/queues/:key/users
func ListQueueUsers(dir QueueDirectory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		team, err := dir.QueueTeam(c.UserContext(), c.Params("key"))
		if err != nil {
			return err
		}
		if team == nil {
			team = []tracker.TeamMember{}
		}
		return c.JSON(team)
	}
}

// CreateBatchTasks handles POST /admin/batch/tasks
func CreateBatchTasks(svc BatchCreator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req services.BatchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		created, err := svc.CreateBatch(c.UserContext(), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(BatchResponse{Created: created})
	}
}

// Package restapi provides the main router and initialization for REST API endpoints.
package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/internal/services"
	"github.com/siriusuniversity/report-backend/internal/uploads"
	"github.com/siriusuniversity/report-backend/restapi/modules/admin"
	"github.com/siriusuniversity/report-backend/restapi/modules/auth"
	"github.com/siriusuniversity/report-backend/restapi/modules/dashboard"
	"github.com/siriusuniversity/report-backend/restapi/modules/employee"
	"github.com/siriusuniversity/report-backend/restapi/modules/files"
	"github.com/siriusuniversity/report-backend/restapi/modules/reports"
)

// TrackerDirectory is the tracker access the admin and file routes proxy
type TrackerDirectory interface {
	admin.QueueDirectory
	files.AttachmentSource
}

// Deps carries everything the routes need
type Deps struct {
	Sessions  *auth.Sessions
	OAuth     *auth.OAuth
	Reports   *services.ReportService
	Tasks     *services.TaskService
	Dashboard *services.DashboardService
	Users     admin.UserLister
	Tracker   TrackerDirectory
	Uploads   *uploads.Dir
	Schema    graphql.Schema
	Log       *zap.Logger
}

// SetupRoutes configures all REST API routes and the GraphQL endpoint
func SetupRoutes(app *fiber.App, d Deps) {
	requireAuth := auth.RequireAuth(d.Sessions)

	// Login flow
	app.Get("/login", auth.Login(d.OAuth))
	app.Get("/auth/code-callback", auth.CodeCallback(d.OAuth))
	app.Post("/auth/token-login", auth.TokenLogin(d.OAuth))
	app.Post("/logout", auth.Logout(d.Sessions))
	app.Get("/auth/me", requireAuth, auth.Me())

	// Employee
	app.Get("/dashboard/:username", requireAuth, dashboard.GetStatus(d.Dashboard))
	app.Post("/submit", requireAuth, reports.Submit(d.Reports))
	app.Get("/employee/tasks", requireAuth, employee.ListTasks(d.Dashboard))

	// Files
	app.Get("/files/:filename", requireAuth, files.GetUpload(d.Uploads))
	app.Get("/attachments/:issue/:id/:filename", requireAuth, files.GetAttachment(d.Tracker))

	// Admin console
	adminGroup := app.Group("/admin", requireAuth, auth.AdminOnly)
	adminGroup.Get("/reports", admin.ListReports(d.Reports))
	adminGroup.Get("/users", admin.ListUsers(d.Users))
	adminGroup.Post("/batch/tasks", admin.CreateBatchTasks(d.Tasks))

	trackerGroup := app.Group("/tracker", requireAuth, auth.AdminOnly)
	trackerGroup.Get("/queues", admin.ListQueues(d.Tracker))
	trackerGroup.Get("/queues/:key/users", admin.ListQueueUsers(d.Tracker))

	// GraphQL Route
	api := app.Group("/api/v1")
	api.Post("/graphql", requireAuth, auth.AdminOnly, GraphQLHandler(d.Schema))

	d.Log.Info("API routes initialized")
}

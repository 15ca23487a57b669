// Package employee implements the REST API handlers for the signed-in employee.
package employee

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/siriusuniversity/report-backend/internal/tracker"
	"github.com/siriusuniversity/report-backend/restapi/modules/auth"
)

// IssueSearcher lists tracker issues assigned to a login
type IssueSearcher interface {
	AssignedIssues(ctx context.Context, login string) ([]tracker.Issue, error)
}

// TaskSummary is one open issue of the employee
type TaskSummary struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
	Queue   string `json:"queue,omitempty"`
}

// ListTasks handles GET /employee/tasks
func ListTasks(svc IssueSearcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		if user == nil {
			return auth.ErrUnauthenticated
		}

		issues, err := svc.AssignedIssues(c.UserContext(), user.Login)
		if err != nil {
			return err
		}

		tasks := make([]TaskSummary, 0, len(issues))
		for _, issue := range issues {
			t := TaskSummary{
				Key:     issue.Key,
				Summary: issue.Summary,
				Status:  issue.Status.Label(),
			}
			if issue.Queue != nil {
				t.Queue = issue.Queue.Key
			}
			tasks = append(tasks, t)
		}
		return c.JSON(tasks)
	}
}

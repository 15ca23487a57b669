// Package dashboard implements the REST API handler for the employee dashboard.
package dashboard

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/siriusuniversity/report-backend/internal/services"
	"github.com/siriusuniversity/report-backend/restapi/modules/auth"
	"github.com/siriusuniversity/report-backend/util"
)

// StatusReader reads the state of a user's active task
type StatusReader interface {
	Status(ctx context.Context, username string) (*services.DashboardStatus, error)
}

// GetStatus handles GET /dashboard/:username. Users only see their own dashboard.
func GetStatus(svc StatusReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		if user == nil {
			return auth.ErrUnauthenticated
		}
		if util.NormalizeLogin(c.Params("username")) != user.Login {
			return auth.ErrForbidden
		}

		status, err := svc.Status(c.UserContext(), user.Login)
		if err != nil {
			return err
		}
		return c.JSON(status)
	}
}

package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/siriusuniversity/report-backend/model"
)

const userLocal = "user"

// RequireAuth middleware resolves the session cookie and blocks guests
func RequireAuth(s *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := s.ResolveCurrentUser(c.UserContext(), c.Cookies(SessionCookie))
		if err != nil {
			return err
		}

		c.Locals(userLocal, user)
		return c.Next()
	}
}

// AdminOnly middleware must run after RequireAuth
func AdminOnly(c *fiber.Ctx) error {
	if _, err := RequireAdmin(CurrentUser(c)); err != nil {
		return err
	}
	return c.Next()
}

// CurrentUser returns the user stored by RequireAuth, or nil
func CurrentUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals(userLocal).(*model.User)
	return user
}

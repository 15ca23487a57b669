package auth

import (
	"github.com/gofiber/fiber/v2"
)

// Logout clears the session cookie
func Logout(s *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Cookie(s.ClearSessionCookie())
		return c.JSON(fiber.Map{"message": "Logged out successfully"})
	}
}

// Me returns the resolved user. Must run behind RequireAuth.
func Me() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return ErrUnauthenticated
		}
		return c.JSON(UserResponse{Login: user.Login, IsAdmin: user.IsAdmin})
	}
}

package restapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/database"
	"github.com/siriusuniversity/report-backend/internal/services"
	"github.com/siriusuniversity/report-backend/internal/tracker"
	"github.com/siriusuniversity/report-backend/internal/uploads"
	"github.com/siriusuniversity/report-backend/restapi/modules/auth"
)

// StatusFor maps an error returned by a handler to an HTTP status
func StatusFor(err error) int {
	var (
		fe  *fiber.Error
		ve  validator.ValidationErrors
		ive *validator.InvalidValidationError
	)
	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidSession):
		return fiber.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNoAssignedTask):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrTrackerCommunication):
		return fiber.StatusInternalServerError
	case errors.Is(err, database.ErrNotFound), errors.Is(err, uploads.ErrInvalidName):
		return fiber.StatusNotFound
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ve), errors.As(err, &ive):
		return fiber.StatusBadRequest
	}
	// tracker answers surfaced directly keep client errors, the rest is a bad gateway
	if se, ok := tracker.AsStatusError(err); ok {
		if se.StatusCode >= 400 && se.StatusCode < 500 {
			return se.StatusCode
		}
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every handler error as {"error": "..."}
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusFor(err)
		msg := err.Error()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			msg = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}

package restapi

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/database"
	"github.com/siriusuniversity/report-backend/internal/services"
	"github.com/siriusuniversity/report-backend/internal/tracker"
	"github.com/siriusuniversity/report-backend/restapi/modules/auth"
	"github.com/siriusuniversity/report-backend/util"
)

func TestStatusFor(t *testing.T) {
	upstream404 := &tracker.StatusError{Op: "get queue", StatusCode: 404}
	upstream503 := &tracker.StatusError{Op: "list queues", StatusCode: 503}

	var validationErr error
	{
		type req struct {
			Name string `validate:"required"`
		}
		validationErr = util.Validate.Struct(req{})
		require.Error(t, validationErr)
	}

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", auth.ErrUnauthenticated, 401},
		{"invalid session", fmt.Errorf("%w: expired", auth.ErrInvalidSession), 401},
		{"forbidden", auth.ErrForbidden, 403},
		{"no task", services.ErrNoAssignedTask, 404},
		{"tracker wrapped", fmt.Errorf("%w: add comment: %w", services.ErrTrackerCommunication, upstream404), 500},
		{"tracker client error", upstream404, 404},
		{"tracker server error", upstream503, 502},
		{"not found", database.ErrNotFound, 404},
		{"fiber error", fiber.NewError(fiber.StatusBadRequest, "bad"), 400},
		{"validation", validationErr, 400},
		{"other", errors.New("boom"), 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusFor(tc.err))
		})
	}
}

func TestErrorHandlerBody(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	app.Get("/fiber", func(*fiber.Ctx) error { return fiber.NewError(fiber.StatusConflict, "taken") })
	app.Get("/plain", func(*fiber.Ctx) error { return services.ErrNoAssignedTask })

	resp, err := app.Test(httptest.NewRequest("GET", "/fiber", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"taken"}`, string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/plain", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"no task assigned to user, contact an administrator"}`, string(body))
}

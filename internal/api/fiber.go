// Package api assembles the Fiber application.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/siriusuniversity/report-backend/internal/config"
	"github.com/siriusuniversity/report-backend/restapi"
)

// NewFiberApp creates and configures a Fiber app with REST and GraphQL routes
func NewFiberApp(cfg config.Config, deps restapi.Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "report-backend API v1.0",
		BodyLimit:    cfg.UploadLimitMB * 1024 * 1024,
		ReadTimeout:  60 * time.Second,
		ErrorHandler: restapi.ErrorHandler(deps.Log),
	})

	// Middleware
	app.Use(fiberrecover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	// Credentials cannot be combined with a wildcard origin
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: cfg.CORSOrigins != "*",
		AllowMethods:     "GET, POST, HEAD, OPTIONS",
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("graphql_op", "-")
		return c.Next()
	})
	if cfg.IsDev() {
		app.Use(logger.New())
	} else {
		app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","status":${status},"latency":"${latency}","method":"${method}","path":"${path}","op":"${locals:graphql_op}"}` + "\n",
			TimeFormat: time.RFC3339,
		}))
	}

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	restapi.SetupRoutes(app, deps)

	return app
}

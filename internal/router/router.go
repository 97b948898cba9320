package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/config"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/handler"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	GradingHandler    *handler.GradingHandler
	ExternalHandler   *handler.ExternalHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	assignments := api.Group("/assignments", jwtMiddleware)
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(assignments)
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(assignments)
	}
	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(assignments)

		grading := api.Group("/grading", jwtMiddleware)
		deps.GradingHandler.RegisterPreferences(grading)
	}

	if deps.ExternalHandler != nil {
		external := api.Group("/external", jwtMiddleware)
		deps.ExternalHandler.Register(external)
	}
}

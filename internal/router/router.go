package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grading-api/internal/config"
	"github.com/noah-isme/gema-grading-api/internal/handler"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler   *handler.SubmissionHandler
	GradingHandler      *handler.GradingHandler
	TeacherHandler      *handler.TeacherHandler
	ExamHandler         *handler.ExamHandler
	GradingEventHandler *handler.GradingEventHandler
	ActivityHandler     *handler.ActivityHandler
	HealthProbes        map[string]handler.HealthProbe
	JWTMiddleware       fiber.Handler
	SubmitLimiter       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	submitLimiter := deps.SubmitLimiter
	if submitLimiter == nil {
		limit := cfg.SubmissionRateLimit
		if limit <= 0 {
			limit = 20
		}
		submitLimiter = middleware.RateLimit("submission", limit, time.Minute)
	}

	v2 := app.Group("/api/v2", jwtMiddleware)

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(v2, submitLimiter)
	}
	if deps.ExamHandler != nil {
		deps.ExamHandler.Register(v2)
	}

	teacher := v2.Group("/teacher", middleware.RequireStaff())
	if deps.GradingEventHandler != nil {
		deps.GradingEventHandler.Register(teacher)
	}
	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(teacher)
	}
	if deps.TeacherHandler != nil {
		deps.TeacherHandler.Register(teacher)
	}

	if deps.ActivityHandler != nil {
		admin := v2.Group("/admin", middleware.RequireAdmin())
		deps.ActivityHandler.Register(admin.Group("/activities"))
	}
}

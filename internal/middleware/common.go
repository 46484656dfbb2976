package middleware

import (
	"io"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config customises the middleware registration pipeline.
type Config struct {
	Logger       *zerolog.Logger
	AllowOrigins string
}

// Register attaches the common middlewares used across the API. Request
// logging is handled by Observability, so fiber's text logger is not mounted.
func Register(app *fiber.App, cfg Config) {
	logger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "http").Logger()
	}

	origins := cfg.AllowOrigins
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, panicValue interface{}) {
			logger.Error().
				Str("correlation_id", GetCorrelationID(c)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Interface("panic", panicValue).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")
		},
	}))
	app.Use(CorrelationID())
	app.Use(Observability(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		ExposeHeaders: "X-Correlation-ID, Retry-After",
	}))
}

package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

type pageLimits struct {
	defaultSize int
	maxSize     int
}

// parsePage reads page and page_size, defaulting and clamping the size.
func parsePage(c *fiber.Ctx, limits pageLimits) (page, size int, err error) {
	if page, err = parseQueryInt(c, "page"); err != nil || page < 0 {
		return 0, 0, errors.New("invalid page")
	}
	if size, err = parseQueryInt(c, "page_size"); err != nil || size < 0 {
		return 0, 0, errors.New("invalid page size")
	}
	if page == 0 {
		page = 1
	}
	switch {
	case size == 0:
		size = limits.defaultSize
	case size > limits.maxSize:
		size = limits.maxSize
	}
	return page, size, nil
}

// parseOptionalID reads a non-negative id filter from the query string.
func parseOptionalID(c *fiber.Ctx, key string) (uint, error) {
	value, err := parseQueryInt(c, key)
	if err != nil || value < 0 {
		return 0, errors.New("invalid " + strings.ReplaceAll(key, "_", " "))
	}
	return uint(value), nil
}

func parseIDParam(c *fiber.Ctx, key string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(key), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func parseKindParam(c *fiber.Ctx) (models.SourceKind, bool) {
	return models.ParseSourceKind(c.Params("kind"))
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	return service.Actor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Namespace()] = fieldErr.Tag()
	}
	return details
}

// handleServiceError maps the service error kinds onto HTTP statuses.
func handleServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrValidation):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrDeadline):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, service.ErrConflict):
		return utils.Fail(c, fiber.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		return utils.Fail(c, fiber.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrPermission):
		return utils.Fail(c, fiber.StatusForbidden, err.Error(), nil)
	}

	requestLogger(logger, c).Error().Err(err).Msg(fallback)
	return utils.Fail(c, fiber.StatusInternalServerError, fallback, nil)
}

package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// SubmissionHandler exposes the student submission endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler constructs a submission handler.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches submission routes. submitGuard runs in front of the
// submit endpoints and is typically a rate limiter.
func (h *SubmissionHandler) Register(router fiber.Router, submitGuard fiber.Handler) {
	if submitGuard == nil {
		submitGuard = func(c *fiber.Ctx) error { return c.Next() }
	}

	studentOnly := middleware.AuthOptions{Role: middleware.AuthRoleStudent}

	router.Post("/assignments/:id/submissions", submitGuard, middleware.WithAuth(h.submitFor(models.SourceKindAssignment), studentOnly))
	router.Post("/exams/:id/submissions", submitGuard, middleware.WithAuth(h.submitFor(models.SourceKindExam), studentOnly))
	router.Get("/assignments/:id/submission", middleware.WithAuth(h.statusFor(models.SourceKindAssignment), studentOnly))
	router.Get("/exams/:id/submission", middleware.WithAuth(h.statusFor(models.SourceKindExam), studentOnly))
	router.Get("/submissions/:id", middleware.WithAuth(h.get, middleware.AuthOptions{RequireUser: true}))
}

func (h *SubmissionHandler) submitFor(kind models.SourceKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sourceID, err := parseIDParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid source id")
		}

		var payload dto.SubmitAnswersRequest
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}

		result, err := h.service.Submit(requestContext(c), userIDFromContext(c), kind, sourceID, payload)
		if err != nil {
			return handleServiceError(c, h.logger, err, "failed to submit answers")
		}

		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission received", result)
	}
}

func (h *SubmissionHandler) statusFor(kind models.SourceKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sourceID, err := parseIDParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid source id")
		}

		status, err := h.service.Status(requestContext(c), userIDFromContext(c), kind, sourceID)
		if err != nil {
			return handleServiceError(c, h.logger, err, "failed to load submission status")
		}

		return utils.SendSuccess(c, "submission status", status)
	}
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	submission, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to load submission")
	}

	return utils.SendSuccess(c, "submission detail", submission)
}

package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// GradingHandler accepts manual grade batches from teachers.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs a grading handler.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register binds grading routes under the teacher group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/submissions/:id/grades", h.applyGrades)
}

func (h *GradingHandler) applyGrades(c *fiber.Ctx) error {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	var payload dto.ApplyGradesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.ApplyGrades(requestContext(c), actorFromContext(c), submissionID, payload)
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to apply grades")
	}

	return utils.SendSuccess(c, "grades applied", result)
}

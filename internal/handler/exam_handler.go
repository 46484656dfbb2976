package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// ExamHandler reports exam windows to any authenticated caller.
type ExamHandler struct {
	service service.SourceService
	logger  zerolog.Logger
}

// NewExamHandler constructs an exam handler.
func NewExamHandler(service service.SourceService, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		service: service,
		logger:  logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register binds exam routes.
func (h *ExamHandler) Register(router fiber.Router) {
	router.Get("/exams/:id/state", h.state)
}

func (h *ExamHandler) state(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exam id")
	}

	state, err := h.service.ExamState(requestContext(c), id)
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to load exam state")
	}

	return utils.SendSuccess(c, "exam state", state)
}

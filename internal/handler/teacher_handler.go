package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// TeacherHandler groups the authoring and monitoring endpoints used by staff.
type TeacherHandler struct {
	sources   service.SourceService
	questions service.QuestionService
	stats     service.SubmissionStatsService
	logger    zerolog.Logger
}

// NewTeacherHandler constructs the teacher handler.
func NewTeacherHandler(sources service.SourceService, questions service.QuestionService, stats service.SubmissionStatsService, logger zerolog.Logger) *TeacherHandler {
	return &TeacherHandler{
		sources:   sources,
		questions: questions,
		stats:     stats,
		logger:    logger.With().Str("component", "teacher_handler").Logger(),
	}
}

// Register binds teacher routes. The router is expected to be staff-guarded.
func (h *TeacherHandler) Register(router fiber.Router) {
	router.Get("/assignments", h.listAssignments)
	router.Post("/assignments", h.createAssignment)
	router.Post("/exams", h.createExam)

	router.Post("/questions", h.createQuestion)
	router.Patch("/questions/:id", h.updateQuestion)
	router.Delete("/questions/:id", h.deleteQuestion)

	router.Get("/:kind/:id/stats", h.sourceStats)
	router.Get("/:kind/:id/roster", h.roster)
	router.Get("/:kind/:id/questions", h.listLinks)
	router.Put("/:kind/:id/questions", h.replaceLinks)
}

var assignmentPageLimits = pageLimits{defaultSize: 20, maxSize: 100}

func (h *TeacherHandler) listAssignments(c *fiber.Ctx) error {
	page, pageSize, err := parsePage(c, assignmentPageLimits)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.sources.ListAssignments(requestContext(c), actorFromContext(c), dto.AssignmentListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
	})
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to list assignments")
	}

	return utils.OK(c, response.Items, "assignments", fiber.Map{"pagination": response.Pagination})
}

func (h *TeacherHandler) createAssignment(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.sources.CreateAssignment(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to create assignment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *TeacherHandler) createExam(c *fiber.Ctx) error {
	var payload dto.ExamCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	exam, err := h.sources.CreateExam(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to create exam")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam created", exam)
}

func (h *TeacherHandler) createQuestion(c *fiber.Ctx) error {
	var payload dto.QuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	question, err := h.questions.Create(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to create question")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", question)
}

func (h *TeacherHandler) updateQuestion(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid question id")
	}

	var payload dto.QuestionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	question, err := h.questions.Update(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to update question")
	}

	return utils.SendSuccess(c, "question updated", question)
}

func (h *TeacherHandler) deleteQuestion(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid question id")
	}

	result, err := h.questions.Delete(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to delete question")
	}

	message := "question deleted"
	if result.Archived {
		message = "question archived"
	}
	return utils.SendSuccess(c, message, result)
}

func (h *TeacherHandler) sourceStats(c *fiber.Ctx) error {
	kind, ok := parseKindParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, "unknown source kind")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid source id")
	}

	stats, err := h.stats.Stats(requestContext(c), actorFromContext(c), kind, id)
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to compute submission stats")
	}

	return utils.SendSuccess(c, "submission stats", stats)
}

func (h *TeacherHandler) roster(c *fiber.Ctx) error {
	kind, ok := parseKindParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, "unknown source kind")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid source id")
	}

	roster, err := h.stats.Roster(requestContext(c), actorFromContext(c), kind, id)
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to load roster")
	}

	return utils.SendSuccess(c, "submission roster", roster)
}

func (h *TeacherHandler) listLinks(c *fiber.Ctx) error {
	kind, ok := parseKindParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, "unknown source kind")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid source id")
	}

	links, err := h.questions.ListLinks(requestContext(c), actorFromContext(c), kind, id)
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to list question links")
	}

	return utils.SendSuccess(c, "question links", links)
}

func (h *TeacherHandler) replaceLinks(c *fiber.Ctx) error {
	kind, ok := parseKindParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, "unknown source kind")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid source id")
	}

	var payload dto.ReplaceQuestionLinksRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	links, err := h.questions.ReplaceLinks(requestContext(c), actorFromContext(c), kind, id, payload)
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to replace question links")
	}

	return utils.SendSuccess(c, "question links replaced", links)
}

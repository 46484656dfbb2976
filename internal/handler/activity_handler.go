package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

var activityPageLimits = pageLimits{defaultSize: 25, maxSize: 200}

// ActivityHandler serves the grading audit trail to administrators.
type ActivityHandler struct {
	activity service.ActivityService
	logger   zerolog.Logger
}

func NewActivityHandler(activity service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activity: activity,
		logger:   logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register mounts the listing on an admin-only group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePage(c, activityPageLimits)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	actorID, err := parseOptionalID(c, "actor_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	entityID, err := parseOptionalID(c, "entity_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.activity.List(requestContext(c), dto.ActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		ActorID:    actorID,
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		EntityID:   entityID,
	})
	if err != nil {
		return handleServiceError(c, h.logger, err, "failed to list activity logs")
	}

	return utils.OK(c, response.Items, "activity logs", fiber.Map{"pagination": response.Pagination})
}

package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

const gradingEventPingInterval = 30 * time.Second

// GradingEventHandler upgrades teacher connections to a per-source event stream.
type GradingEventHandler struct {
	events  service.GradingEventService
	sources service.SourceService
	logger  zerolog.Logger
}

// NewGradingEventHandler creates a grading event handler.
func NewGradingEventHandler(events service.GradingEventService, sources service.SourceService, logger zerolog.Logger) *GradingEventHandler {
	return &GradingEventHandler{
		events:  events,
		sources: sources,
		logger:  logger.With().Str("component", "grading_event_handler").Logger(),
	}
}

// Register binds the websocket route under the teacher group.
func (h *GradingEventHandler) Register(router fiber.Router) {
	router.Use("/events/ws", h.authorizeUpgrade)
	router.Get("/events/ws", websocket.New(h.handleConnection))
}

func (h *GradingEventHandler) authorizeUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	kind, ok := models.ParseSourceKind(c.Query("source_kind"))
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "source_kind required")
	}
	sourceID, err := strconv.ParseUint(strings.TrimSpace(c.Query("source_id")), 10, 64)
	if err != nil || sourceID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "source_id required")
	}

	ctx := requestContext(c)
	if err := h.sources.Authorize(ctx, actorFromContext(c), kind, uint(sourceID)); err != nil {
		return handleServiceError(c, h.logger, err, "failed to authorize event stream")
	}

	c.Locals("request_ctx", ctx)
	c.Locals("source_kind", string(kind))
	c.Locals("source_id", uint(sourceID))
	return c.Next()
}

func (h *GradingEventHandler) handleConnection(conn *websocket.Conn) {
	kind := models.SourceKind(localString(conn.Locals("source_kind")))
	sourceID, _ := conn.Locals("source_id").(uint)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	logger := h.logger.With().
		Str("source_kind", string(kind)).
		Uint("source_id", sourceID).
		Str("correlation_id", middleware.CorrelationIDFromContext(baseCtx)).
		Logger()

	events, unsubscribe := h.events.Subscribe(kind, sourceID)
	defer unsubscribe()

	logger.Info().Msg("grading event stream connected")
	defer logger.Info().Msg("grading event stream disconnected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(gradingEventPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("failed to write grading event")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func localString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

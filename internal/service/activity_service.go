package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// ActivityEntry is an audit entry before persistence.
type ActivityEntry struct {
	Actor      Actor
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// ActivityRecorder appends entries to the grading audit trail.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error)
}

// ActivityService records and lists the grading audit trail.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

var sensitiveMetadataKeys = []string{"email", "token", "password", "secret"}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	entityType := strings.ToLower(strings.TrimSpace(entry.EntityType))
	if action == "" || entityType == "" {
		return dto.ActivityResponse{}, fmt.Errorf("%w: activity needs an action and an entity type", ErrValidation)
	}

	role := entry.Actor.normalizedRole()
	if role == "" {
		role = "system"
	}

	log := models.ActivityLog{
		ActorID:    entry.Actor.ID,
		ActorRole:  role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entry.EntityID,
		Metadata:   redactMetadata(entry.Metadata),
	}
	if err := s.repo.Create(ctx, &log); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to persist activity log")
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(log), nil
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	filter := repository.ActivityLogFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		Action:     strings.ToLower(strings.TrimSpace(req.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(req.EntityType)),
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}
	if req.EntityID > 0 {
		filter.EntityID = &req.EntityID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	items := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewActivityResponse(entry))
	}

	return dto.ActivityListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

// recordActivity writes an audit entry when a recorder is configured. Audit
// failures never fail the operation being audited.
func recordActivity(ctx context.Context, recorder ActivityRecorder, logger zerolog.Logger, entry ActivityEntry) {
	if recorder == nil {
		return
	}
	if _, err := recorder.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record activity")
	}
}

func redactMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	redacted := make(datatypes.JSONMap, len(metadata))
	for key, value := range metadata {
		lower := strings.ToLower(key)
		for _, sensitive := range sensitiveMetadataKeys {
			if strings.Contains(lower, sensitive) {
				value = "***"
				break
			}
		}
		redacted[key] = value
	}
	return redacted
}

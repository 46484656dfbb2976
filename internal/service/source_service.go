package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// SourceService authors assignments and exams and reports exam windows.
type SourceService interface {
	CreateAssignment(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	CreateExam(ctx context.Context, actor Actor, payload dto.ExamCreateRequest) (dto.ExamResponse, error)
	ListAssignments(ctx context.Context, actor Actor, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error)
	ExamState(ctx context.Context, examID uint) (dto.ExamStateResponse, error)
	Authorize(ctx context.Context, actor Actor, kind models.SourceKind, sourceID uint) error
}

type sourceService struct {
	store     repository.Store
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSourceService builds the assignment and exam authoring service.
func NewSourceService(store repository.Store, validate *validator.Validate, logger zerolog.Logger) SourceService {
	return &sourceService{
		store:     store,
		validator: validate,
		logger:    logger.With().Str("component", "source_service").Logger(),
		now:       time.Now,
	}
}

func (s *sourceService) CreateAssignment(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if !actor.IsStaff() {
		return dto.AssignmentResponse{}, ErrStaffOnly
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		Title:       strings.TrimSpace(payload.Title),
		Description: strings.TrimSpace(payload.Description),
		CourseID:    payload.CourseID,
		DueDate:     payload.DueDate.UTC(),
		CreatedBy:   actor.ID,
	}
	if err := s.store.Assignments().Create(ctx, &assignment, payload.ClassIDs); err != nil {
		s.logger.Error().Err(err).Msg("failed to create assignment")
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("created_by", actor.ID).Msg("assignment created")
	return dto.NewAssignmentResponse(assignment, payload.ClassIDs), nil
}

func (s *sourceService) CreateExam(ctx context.Context, actor Actor, payload dto.ExamCreateRequest) (dto.ExamResponse, error) {
	if !actor.IsStaff() {
		return dto.ExamResponse{}, ErrStaffOnly
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	exam := models.Exam{
		Title:           strings.TrimSpace(payload.Title),
		CourseID:        payload.CourseID,
		StartTime:       payload.StartTime.UTC(),
		DurationMinutes: payload.DurationMinutes,
		CreatedBy:       actor.ID,
	}
	if err := s.store.Exams().Create(ctx, &exam, payload.ClassIDs); err != nil {
		s.logger.Error().Err(err).Msg("failed to create exam")
		return dto.ExamResponse{}, err
	}

	s.logger.Info().Uint("exam_id", exam.ID).Uint("created_by", actor.ID).Msg("exam created")
	return dto.NewExamResponse(exam, payload.ClassIDs), nil
}

func (s *sourceService) ListAssignments(ctx context.Context, actor Actor, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error) {
	if !actor.IsStaff() {
		return dto.AssignmentListResponse{}, ErrStaffOnly
	}

	filter := repository.AssignmentFilter{
		Search:   strings.TrimSpace(req.Search),
		Sort:     req.Sort,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if !actor.IsAdmin() {
		owner := actor.ID
		filter.CreatedBy = &owner
	}

	assignments, total, err := s.store.Assignments().List(ctx, filter)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	items := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		items = append(items, dto.NewAssignmentResponse(assignment, nil))
	}

	return dto.AssignmentListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

// ExamState evaluates the exam window against the server clock. Client
// supplied times are never consulted.
func (s *sourceService) ExamState(ctx context.Context, examID uint) (dto.ExamStateResponse, error) {
	source, err := loadGradedSource(ctx, s.store, models.SourceKindExam, examID)
	if err != nil {
		return dto.ExamStateResponse{}, err
	}

	now := s.now()
	exam := source.Exam
	return dto.ExamStateResponse{
		ExamID:     exam.ID,
		State:      string(exam.State(now)),
		StartsAt:   exam.StartTime,
		EndsAt:     exam.EndTime(),
		ServerTime: now.UTC(),
	}, nil
}

// Authorize reports whether the actor may watch or manage the given source.
func (s *sourceService) Authorize(ctx context.Context, actor Actor, kind models.SourceKind, sourceID uint) error {
	source, err := loadGradedSource(ctx, s.store, kind, sourceID)
	if err != nil {
		return err
	}
	return authorizeSource(actor, source)
}

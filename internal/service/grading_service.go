package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/observability"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// GradingService applies manual scores to submission details.
type GradingService interface {
	ApplyGrades(ctx context.Context, actor Actor, submissionID uint, payload dto.ApplyGradesRequest) (dto.ApplyGradesResponse, error)
}

type gradingService struct {
	store     repository.Store
	validator *validator.Validate
	activity  ActivityRecorder
	events    GradingEventPublisher
	stats     StatsInvalidator
	sanitizer *bluemonday.Policy
	tracer    trace.Tracer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGradingService constructs the grading service. activity, events and stats may be nil.
func NewGradingService(store repository.Store, validate *validator.Validate, activity ActivityRecorder, events GradingEventPublisher, stats StatsInvalidator, logger zerolog.Logger) GradingService {
	return &gradingService{
		store:     store,
		validator: validate,
		activity:  activity,
		events:    events,
		stats:     stats,
		sanitizer: bluemonday.StrictPolicy(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-grading-api/internal/service/grading"),
		logger:    logger.With().Str("component", "grading_service").Logger(),
		now:       time.Now,
	}
}

// ApplyGrades overwrites the score and feedback of each referenced detail,
// recomputes the header total from the stored details and marks the
// submission graded. The batch commits entirely or not at all.
func (s *gradingService) ApplyGrades(ctx context.Context, actor Actor, submissionID uint, payload dto.ApplyGradesRequest) (dto.ApplyGradesResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.apply")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
		attribute.Int("grading.batch_size", len(payload.Grades)),
	)
	defer span.End()

	response, err := s.applyGrades(ctx, actor, submissionID, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, rejectionReason(err))
		observability.GradingBatches().WithLabelValues("rejected").Inc()
		return dto.ApplyGradesResponse{}, err
	}

	observability.GradingBatches().WithLabelValues("applied").Inc()
	span.SetAttributes(attribute.Float64("grading.total_score", response.NewTotalScore))
	return response, nil
}

func (s *gradingService) applyGrades(ctx context.Context, actor Actor, submissionID uint, payload dto.ApplyGradesRequest) (dto.ApplyGradesResponse, error) {
	if actor.IsStudent() {
		return dto.ApplyGradesResponse{}, ErrStudentCannotGrade
	}
	if !actor.IsStaff() {
		return dto.ApplyGradesResponse{}, ErrStaffOnly
	}
	if len(payload.Grades) == 0 {
		return dto.ApplyGradesResponse{}, ErrEmptyGrades
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplyGradesResponse{}, err
	}
	seen := make(map[uint]struct{}, len(payload.Grades))
	for _, grade := range payload.Grades {
		if grade.Score < 0 {
			return dto.ApplyGradesResponse{}, ErrNegativeScore
		}
		if _, ok := seen[grade.DetailID]; ok {
			return dto.ApplyGradesResponse{}, ErrDuplicateGrade
		}
		seen[grade.DetailID] = struct{}{}
	}

	gradedAt := s.now()
	var (
		submission models.Submission
		total      float64
	)

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		submission, err = tx.Submissions().GetByIDForUpdate(ctx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}

		source, err := loadGradedSource(ctx, tx, submission.SourceKind, submission.SourceID)
		if err != nil {
			return err
		}
		if err := authorizeSource(actor, source); err != nil {
			return err
		}

		details := make(map[uint]models.SubmissionDetail, len(submission.Details))
		for _, detail := range submission.Details {
			details[detail.ID] = detail
		}

		references, err := tx.Questions().ResolveReferenceAnswers(ctx, submission.SourceKind, submission.SourceID)
		if err != nil {
			return err
		}
		weights := make(map[uint]float64, len(references))
		for _, reference := range references {
			weights[reference.QuestionID] = reference.Weight
		}

		history := make([]models.SubmissionGradeHistory, 0, len(payload.Grades))
		for _, grade := range payload.Grades {
			detail, ok := details[grade.DetailID]
			if !ok {
				return ErrDetailNotFound
			}

			if weight, linked := weights[detail.QuestionID]; linked && grade.Score > weight {
				observability.GradesOverWeight().Inc()
				s.logger.Warn().
					Uint("submission_id", submission.ID).
					Uint("detail_id", detail.ID).
					Float64("score", grade.Score).
					Float64("weight", weight).
					Msg("manual score exceeds item weight")
			}

			previous := detail.Score
			detail.Score = grade.Score
			detail.Feedback = strings.TrimSpace(s.sanitizer.Sanitize(grade.Feedback))
			if err := tx.Submissions().UpdateDetailScore(ctx, detail); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrDetailNotFound
				}
				return err
			}

			history = append(history, models.SubmissionGradeHistory{
				SubmissionID:  submission.ID,
				DetailID:      detail.ID,
				PreviousScore: previous,
				Score:         grade.Score,
				GradedBy:      actor.ID,
				GradedAt:      gradedAt,
			})
			details[detail.ID] = detail
		}

		var projected float64
		for _, detail := range details {
			projected += detail.Score
		}
		if projected > models.MaxScore {
			return ErrScoreOutOfRange
		}

		if err := tx.Submissions().CreateHistory(ctx, history); err != nil {
			return err
		}

		total, err = tx.Submissions().RecalculateTotal(ctx, submission.ID)
		if err != nil {
			return err
		}

		return tx.Submissions().MarkGraded(ctx, submission.ID, actor.ID, gradedAt)
	})
	if err != nil {
		return dto.ApplyGradesResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     models.ActivitySubmissionGraded,
		EntityType: models.EntitySubmission,
		EntityID:   &submission.ID,
		Metadata: map[string]interface{}{
			"student_id":  submission.StudentID,
			"source_kind": string(submission.SourceKind),
			"source_id":   submission.SourceID,
			"grades":      len(payload.Grades),
			"total_score": total,
		},
	})
	if s.stats != nil {
		s.stats.Invalidate(ctx, submission.SourceKind, submission.SourceID)
	}
	if s.events != nil {
		s.events.Publish(ctx, dto.GradingEvent{
			Type:         dto.GradingEventSubmissionGraded,
			SourceKind:   string(submission.SourceKind),
			SourceID:     submission.SourceID,
			SubmissionID: submission.ID,
			StudentID:    submission.StudentID,
			Status:       models.SubmissionStatusGraded,
			TotalScore:   total,
			OccurredAt:   gradedAt,
		})
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("graded_by", actor.ID).
		Int("grades", len(payload.Grades)).
		Float64("total_score", total).
		Msg("submission graded")

	return dto.ApplyGradesResponse{
		Success:       true,
		SubmissionID:  submission.ID,
		Status:        models.SubmissionStatusGraded,
		NewTotalScore: total,
		GradedAt:      gradedAt,
	}, nil
}

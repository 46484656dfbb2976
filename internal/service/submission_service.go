package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
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

// SubmissionService ingests student answers and exposes the read side of submissions.
type SubmissionService interface {
	Submit(ctx context.Context, studentID uint, kind models.SourceKind, sourceID uint, payload dto.SubmitAnswersRequest) (dto.SubmitResult, error)
	SubmitAssignment(ctx context.Context, studentID, assignmentID uint, payload dto.SubmitAnswersRequest) (dto.SubmitResult, error)
	SubmitExam(ctx context.Context, studentID, examID uint, payload dto.SubmitAnswersRequest) (dto.SubmitResult, error)
	Get(ctx context.Context, actor Actor, submissionID uint) (dto.SubmissionResponse, error)
	Status(ctx context.Context, studentID uint, kind models.SourceKind, sourceID uint) (dto.SubmissionStatusResponse, error)
}

type submissionService struct {
	store     repository.Store
	grader    AutoGrader
	validator *validator.Validate
	events    GradingEventPublisher
	stats     StatsInvalidator
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewSubmissionService constructs the submission ingestion service. events and
// stats may be nil.
func NewSubmissionService(store repository.Store, validate *validator.Validate, events GradingEventPublisher, stats StatsInvalidator, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		store:     store,
		validator: validate,
		events:    events,
		stats:     stats,
		logger:    logger.With().Str("component", "submission_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-grading-api/internal/service/submission"),
		now:       time.Now,
	}
}

func (s *submissionService) SubmitAssignment(ctx context.Context, studentID, assignmentID uint, payload dto.SubmitAnswersRequest) (dto.SubmitResult, error) {
	return s.Submit(ctx, studentID, models.SourceKindAssignment, assignmentID, payload)
}

func (s *submissionService) SubmitExam(ctx context.Context, studentID, examID uint, payload dto.SubmitAnswersRequest) (dto.SubmitResult, error) {
	return s.Submit(ctx, studentID, models.SourceKindExam, examID, payload)
}

func (s *submissionService) Submit(ctx context.Context, studentID uint, kind models.SourceKind, sourceID uint, payload dto.SubmitAnswersRequest) (dto.SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "submissions.submit", trace.WithAttributes(
		attribute.String("submission.source_kind", string(kind)),
		attribute.Int64("submission.source_id", int64(sourceID)),
		attribute.Int64("submission.student_id", int64(studentID)),
	))
	defer span.End()

	result, err := s.submit(ctx, studentID, kind, sourceID, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, rejectionReason(err))
		observability.SubmissionsRejected().WithLabelValues(string(kind), rejectionReason(err)).Inc()
		return dto.SubmitResult{}, err
	}

	span.SetAttributes(
		attribute.Int64("submission.id", int64(result.SubmissionID)),
		attribute.Float64("submission.score", result.Score),
	)
	return result, nil
}

func (s *submissionService) submit(ctx context.Context, studentID uint, kind models.SourceKind, sourceID uint, payload dto.SubmitAnswersRequest) (dto.SubmitResult, error) {
	if !kind.Valid() {
		return dto.SubmitResult{}, ErrInvalidSourceKind
	}
	if len(payload.Answers) == 0 {
		return dto.SubmitResult{}, ErrEmptyAnswers
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmitResult{}, err
	}
	seen := make(map[uint]struct{}, len(payload.Answers))
	for _, answer := range payload.Answers {
		if _, ok := seen[answer.QuestionID]; ok {
			return dto.SubmitResult{}, ErrDuplicateAnswer
		}
		seen[answer.QuestionID] = struct{}{}
	}

	now := s.now()
	var (
		header  models.Submission
		dropped int
	)

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		source, err := loadGradedSource(ctx, tx, kind, sourceID)
		if err != nil {
			return err
		}
		if err := source.checkOpen(now); err != nil {
			return err
		}

		if _, err := tx.Submissions().FindByOwner(ctx, studentID, kind, sourceID); err == nil {
			return ErrAlreadySubmitted
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		references, err := tx.Questions().ResolveReferenceAnswers(ctx, kind, sourceID)
		if err != nil {
			return err
		}
		if len(references) == 0 {
			return ErrSourceNotFound
		}
		byQuestion := make(map[uint]models.ReferenceAnswer, len(references))
		for _, reference := range references {
			byQuestion[reference.QuestionID] = reference
		}

		header = models.Submission{
			StudentID:   studentID,
			SourceKind:  kind,
			SourceID:    sourceID,
			Status:      models.SubmissionStatusSubmitted,
			SubmittedAt: now,
		}
		if err := tx.Submissions().Create(ctx, &header); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadySubmitted
			}
			return err
		}

		details := make([]models.SubmissionDetail, 0, len(payload.Answers))
		for _, answer := range payload.Answers {
			reference, ok := byQuestion[answer.QuestionID]
			if !ok {
				dropped++
				s.logger.Warn().
					Uint("submission_id", header.ID).
					Uint("question_id", answer.QuestionID).
					Str("source_kind", string(kind)).
					Uint("source_id", sourceID).
					Msg("dropping answer for question not linked to source")
				continue
			}

			outcome := s.grader.Grade(reference, answer.Answer)
			if outcome.Graded {
				result := "incorrect"
				if outcome.IsCorrect != nil && *outcome.IsCorrect {
					result = "correct"
				}
				observability.ItemsAutoGraded().WithLabelValues(result).Inc()
			}

			details = append(details, models.SubmissionDetail{
				SubmissionID: header.ID,
				QuestionID:   answer.QuestionID,
				Answer:       answer.Answer,
				IsCorrect:    outcome.IsCorrect,
				Score:        outcome.Score,
			})
		}

		// Nothing left to grade: roll the header back so the student can
		// resubmit once the links are fixed.
		if len(details) == 0 {
			return ErrEmptyAnswers
		}

		if err := tx.Submissions().CreateDetails(ctx, details); err != nil {
			return err
		}

		total, err := tx.Submissions().RecalculateTotal(ctx, header.ID)
		if err != nil {
			return err
		}
		header.TotalScore = total
		return nil
	})
	if err != nil {
		return dto.SubmitResult{}, err
	}

	if dropped > 0 {
		observability.AnswersDropped().WithLabelValues(string(kind)).Add(float64(dropped))
	}
	observability.SubmissionsIngested().WithLabelValues(string(kind)).Inc()

	if s.stats != nil {
		s.stats.Invalidate(ctx, kind, sourceID)
	}
	if s.events != nil {
		s.events.Publish(ctx, dto.GradingEvent{
			Type:         dto.GradingEventSubmissionCreated,
			SourceKind:   string(kind),
			SourceID:     sourceID,
			SubmissionID: header.ID,
			StudentID:    studentID,
			Status:       header.Status,
			TotalScore:   header.TotalScore,
			OccurredAt:   now,
		})
	}

	s.logger.Info().
		Uint("submission_id", header.ID).
		Uint("student_id", studentID).
		Str("source_kind", string(kind)).
		Uint("source_id", sourceID).
		Float64("score", header.TotalScore).
		Int("dropped_answers", dropped).
		Msg("submission ingested")

	return dto.SubmitResult{
		SubmissionID:   header.ID,
		SourceKind:     string(kind),
		SourceID:       sourceID,
		Status:         header.Status,
		Score:          header.TotalScore,
		DroppedAnswers: dropped,
		SubmittedAt:    header.SubmittedAt,
	}, nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, submissionID uint) (dto.SubmissionResponse, error) {
	submission, err := s.store.Submissions().GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if actor.IsStudent() {
		if submission.StudentID != actor.ID {
			return dto.SubmissionResponse{}, ErrNotSubmissionOwner
		}
		return dto.NewSubmissionResponse(submission), nil
	}

	source, err := loadGradedSource(ctx, s.store, submission.SourceKind, submission.SourceID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := authorizeSource(actor, source); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Status(ctx context.Context, studentID uint, kind models.SourceKind, sourceID uint) (dto.SubmissionStatusResponse, error) {
	if _, err := loadGradedSource(ctx, s.store, kind, sourceID); err != nil {
		return dto.SubmissionStatusResponse{}, err
	}

	submission, err := s.store.Submissions().FindByOwner(ctx, studentID, kind, sourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionStatusResponse{
				SourceKind: string(kind),
				SourceID:   sourceID,
				Status:     dto.SubmissionStatusNotSubmitted,
			}, nil
		}
		return dto.SubmissionStatusResponse{}, err
	}

	return dto.NewSubmissionStatusResponse(submission), nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrDeadline):
		return "deadline"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation), isValidatorError(err):
		return "validation"
	default:
		return "internal"
	}
}

func isValidatorError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// QuestionService manages the question catalog and the weighted links that
// attach questions to assignments and exams.
type QuestionService interface {
	Create(ctx context.Context, actor Actor, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) (dto.QuestionDeleteResponse, error)
	ListLinks(ctx context.Context, actor Actor, kind models.SourceKind, sourceID uint) (dto.QuestionLinksResponse, error)
	ReplaceLinks(ctx context.Context, actor Actor, kind models.SourceKind, sourceID uint, payload dto.ReplaceQuestionLinksRequest) (dto.QuestionLinksResponse, error)
}

type questionService struct {
	store     repository.Store
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewQuestionService constructs the catalog service. activity may be nil.
func NewQuestionService(store repository.Store, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) QuestionService {
	return &questionService{
		store:     store,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "question_service").Logger(),
		now:       time.Now,
	}
}

func (s *questionService) Create(ctx context.Context, actor Actor, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if !actor.IsStaff() {
		return dto.QuestionResponse{}, ErrStaffOnly
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	questionType := models.QuestionType(payload.Type)
	answer := strings.TrimSpace(payload.Answer)
	if questionType.IsObjective() && answer == "" {
		return dto.QuestionResponse{}, ErrMissingReferenceAnswer
	}

	options, err := encodeOptions(payload.Options)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	question := models.Question{
		Type:       questionType,
		Content:    strings.TrimSpace(payload.Content),
		Options:    options,
		Answer:     answer,
		Difficulty: strings.ToLower(strings.TrimSpace(payload.Difficulty)),
		CourseID:   payload.CourseID,
		CreatedBy:  actor.ID,
	}
	if err := s.store.Questions().Create(ctx, &question); err != nil {
		s.logger.Error().Err(err).Msg("failed to create question")
		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(question), nil
}

// Update edits a question in place. Questions referenced by graded
// submissions are locked so recorded scores keep their meaning.
func (s *questionService) Update(ctx context.Context, actor Actor, id uint, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error) {
	if !actor.IsStaff() {
		return dto.QuestionResponse{}, ErrStaffOnly
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	var question models.Question
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		question, err = s.loadOwnedQuestion(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if question.IsArchived() {
			return ErrQuestionArchived
		}

		graded, err := tx.Questions().CountDetailReferences(ctx, id, true)
		if err != nil {
			return err
		}
		if graded > 0 {
			return ErrQuestionLocked
		}

		if payload.Content != nil {
			question.Content = strings.TrimSpace(*payload.Content)
		}
		if payload.Options != nil {
			options, err := encodeOptions(*payload.Options)
			if err != nil {
				return err
			}
			question.Options = options
		}
		if payload.Answer != nil {
			question.Answer = strings.TrimSpace(*payload.Answer)
		}
		if payload.Difficulty != nil {
			question.Difficulty = strings.ToLower(strings.TrimSpace(*payload.Difficulty))
		}
		if question.Type.IsObjective() && question.Answer == "" {
			return ErrMissingReferenceAnswer
		}

		return tx.Questions().Update(ctx, &question)
	})
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(question), nil
}

// Delete removes an unused question, or archives it when any submission
// detail already points at it.
func (s *questionService) Delete(ctx context.Context, actor Actor, id uint) (dto.QuestionDeleteResponse, error) {
	if !actor.IsStaff() {
		return dto.QuestionDeleteResponse{}, ErrStaffOnly
	}

	response := dto.QuestionDeleteResponse{ID: id}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		question, err := s.loadOwnedQuestion(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		references, err := tx.Questions().CountDetailReferences(ctx, id, false)
		if err != nil {
			return err
		}
		if references == 0 {
			if err := tx.Questions().Delete(ctx, id); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrQuestionNotFound
				}
				return err
			}
			response.Deleted = true
			return nil
		}

		response.Archived = true
		if question.IsArchived() {
			return nil
		}
		return tx.Questions().Archive(ctx, id, s.now())
	})
	if err != nil {
		return dto.QuestionDeleteResponse{}, err
	}

	s.logger.Info().
		Uint("question_id", id).
		Bool("deleted", response.Deleted).
		Bool("archived", response.Archived).
		Msg("question removed from catalog")

	action := models.ActivityQuestionArchived
	if response.Deleted {
		action = models.ActivityQuestionDeleted
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: models.EntityQuestion,
		EntityID:   &id,
	})

	return response, nil
}

func (s *questionService) ListLinks(ctx context.Context, actor Actor, kind models.SourceKind, sourceID uint) (dto.QuestionLinksResponse, error) {
	source, err := loadGradedSource(ctx, s.store, kind, sourceID)
	if err != nil {
		return dto.QuestionLinksResponse{}, err
	}
	if err := authorizeSource(actor, source); err != nil {
		return dto.QuestionLinksResponse{}, err
	}

	links, err := s.store.Questions().ListLinks(ctx, kind, sourceID)
	if err != nil {
		return dto.QuestionLinksResponse{}, err
	}

	return dto.NewQuestionLinksResponse(kind, sourceID, links), nil
}

// ReplaceLinks swaps the full link set of a source. Archived questions may
// stay linked where they already are but cannot be linked anew.
func (s *questionService) ReplaceLinks(ctx context.Context, actor Actor, kind models.SourceKind, sourceID uint, payload dto.ReplaceQuestionLinksRequest) (dto.QuestionLinksResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionLinksResponse{}, err
	}

	ids := make([]uint, 0, len(payload.Links))
	seen := make(map[uint]struct{}, len(payload.Links))
	for _, link := range payload.Links {
		if _, ok := seen[link.QuestionID]; ok {
			return dto.QuestionLinksResponse{}, ErrDuplicateLink
		}
		seen[link.QuestionID] = struct{}{}
		ids = append(ids, link.QuestionID)
	}

	var links []models.QuestionLink
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		source, err := loadGradedSource(ctx, tx, kind, sourceID)
		if err != nil {
			return err
		}
		if err := authorizeSource(actor, source); err != nil {
			return err
		}

		questions, err := tx.Questions().FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uint]models.Question, len(questions))
		for _, question := range questions {
			byID[question.ID] = question
		}

		current, err := tx.Questions().ListLinks(ctx, kind, sourceID)
		if err != nil {
			return err
		}
		alreadyLinked := make(map[uint]struct{}, len(current))
		for _, link := range current {
			alreadyLinked[link.QuestionID] = struct{}{}
		}

		links = make([]models.QuestionLink, 0, len(payload.Links))
		for i, input := range payload.Links {
			question, ok := byID[input.QuestionID]
			if !ok {
				return ErrQuestionNotFound
			}
			if _, kept := alreadyLinked[question.ID]; question.IsArchived() && !kept {
				return ErrQuestionArchived
			}

			position := input.Position
			if position == 0 {
				position = i + 1
			}
			links = append(links, models.QuestionLink{
				QuestionID: question.ID,
				Weight:     input.Weight,
				Position:   position,
			})
		}

		return tx.Questions().ReplaceLinks(ctx, kind, sourceID, links)
	})
	if err != nil {
		return dto.QuestionLinksResponse{}, err
	}

	s.logger.Info().
		Str("source_kind", string(kind)).
		Uint("source_id", sourceID).
		Int("links", len(links)).
		Msg("question links replaced")

	questionIDs := make([]uint, 0, len(links))
	for _, link := range links {
		questionIDs = append(questionIDs, link.QuestionID)
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     models.ActivitySourceLinksEdited,
		EntityType: models.EntityForSource(kind),
		EntityID:   &sourceID,
		Metadata:   map[string]interface{}{"question_ids": questionIDs},
	})

	return dto.NewQuestionLinksResponse(kind, sourceID, links), nil
}

func (s *questionService) loadOwnedQuestion(ctx context.Context, store repository.Store, actor Actor, id uint) (models.Question, error) {
	question, err := store.Questions().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrQuestionNotFound
		}
		return models.Question{}, err
	}
	if !actor.IsAdmin() && question.CreatedBy != actor.ID {
		return models.Question{}, ErrNotQuestionOwner
	}
	return question, nil
}

func encodeOptions(options []string) (datatypes.JSON, error) {
	if len(options) == 0 {
		return nil, nil
	}
	trimmed := make([]string, 0, len(options))
	for _, option := range options {
		trimmed = append(trimmed, strings.TrimSpace(option))
	}
	encoded, err := json.Marshal(trimmed)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}

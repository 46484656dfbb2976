package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// QuestionRepository persists catalog questions and their links to assignments and exams.
type QuestionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Question, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	Archive(ctx context.Context, id uint, at time.Time) error
	CountDetailReferences(ctx context.Context, questionID uint, gradedOnly bool) (int64, error)
	ListLinks(ctx context.Context, kind models.SourceKind, sourceID uint) ([]models.QuestionLink, error)
	ReplaceLinks(ctx context.Context, kind models.SourceKind, sourceID uint, links []models.QuestionLink) error
	ResolveReferenceAnswers(ctx context.Context, kind models.SourceKind, sourceID uint) ([]models.ReferenceAnswer, error)
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates a GORM-backed repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return models.Question{}, err
	}
	return question, nil
}

func (r *questionRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Question, error) {
	if len(ids) == 0 {
		return []models.Question{}, nil
	}
	var questions []models.Question
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Save(question).Error
}

func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&models.QuestionLink{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Question{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *questionRepository) Archive(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ? AND archived_at IS NULL", id).
		Update("archived_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questionRepository) CountDetailReferences(ctx context.Context, questionID uint, gradedOnly bool) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SubmissionDetail{}).
		Where("submission_details.question_id = ?", questionID)

	if gradedOnly {
		query = query.
			Joins("JOIN submissions ON submissions.id = submission_details.submission_id").
			Where("submissions.status = ?", models.SubmissionStatusGraded)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *questionRepository) ListLinks(ctx context.Context, kind models.SourceKind, sourceID uint) ([]models.QuestionLink, error) {
	var links []models.QuestionLink
	err := r.db.WithContext(ctx).
		Where("source_kind = ? AND source_id = ?", kind, sourceID).
		Order("position ASC, id ASC").
		Find(&links).Error
	return links, err
}

// ReplaceLinks swaps the whole link set of a source. Link history is not kept.
func (r *questionRepository) ReplaceLinks(ctx context.Context, kind models.SourceKind, sourceID uint, links []models.QuestionLink) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_kind = ? AND source_id = ?", kind, sourceID).Delete(&models.QuestionLink{}).Error; err != nil {
			return err
		}
		if len(links) == 0 {
			return nil
		}
		for i := range links {
			links[i].ID = 0
			links[i].SourceKind = kind
			links[i].SourceID = sourceID
		}
		return tx.Omit(clause.Associations).Create(&links).Error
	})
}

func (r *questionRepository) ResolveReferenceAnswers(ctx context.Context, kind models.SourceKind, sourceID uint) ([]models.ReferenceAnswer, error) {
	var references []models.ReferenceAnswer
	err := r.db.WithContext(ctx).
		Table("question_links").
		Select("question_links.question_id AS question_id, questions.type AS type, questions.answer AS answer, question_links.weight AS weight").
		Joins("JOIN questions ON questions.id = question_links.question_id").
		Where("question_links.source_kind = ? AND question_links.source_id = ?", kind, sourceID).
		Order("question_links.position ASC, question_links.id ASC").
		Scan(&references).Error
	if err != nil {
		return nil, err
	}
	return references, nil
}

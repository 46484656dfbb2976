package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	SourceKind *models.SourceKind
	SourceID   *uint
	StudentID  *uint
	Status     *string
}

// SubmissionRepository defines data operations for submission headers and details.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByIDForUpdate(ctx context.Context, id uint) (models.Submission, error)
	FindByOwner(ctx context.Context, studentID uint, kind models.SourceKind, sourceID uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	CreateDetails(ctx context.Context, details []models.SubmissionDetail) error
	UpdateDetailScore(ctx context.Context, detail models.SubmissionDetail) error
	RecalculateTotal(ctx context.Context, submissionID uint) (float64, error)
	MarkGraded(ctx context.Context, submissionID, gradedBy uint, gradedAt time.Time) error
	CreateHistory(ctx context.Context, entries []models.SubmissionGradeHistory) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Details", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("submission_details.id ASC")
		})
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.SourceKind != nil {
		query = query.Where("source_kind = ?", *filter.SourceKind)
	}

	if filter.SourceID != nil {
		query = query.Where("source_id = ?", *filter.SourceID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// GetByIDForUpdate locks the header row for the rest of the surrounding
// transaction. Drivers without row locks ignore the clause.
func (r *submissionRepository) GetByIDForUpdate(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	var details []models.SubmissionDetail
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", id).
		Order("id ASC").
		Find(&details).Error; err != nil {
		return models.Submission{}, err
	}
	submission.Details = details

	return submission, nil
}

func (r *submissionRepository) FindByOwner(ctx context.Context, studentID uint, kind models.SourceKind, sourceID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Where("source_kind = ?", kind).
		Where("source_id = ?", sourceID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// Create inserts the header only. A second header for the same
// (student, source) pair fails with gorm.ErrDuplicatedKey.
func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(submission).Error
	if isUniqueViolation(err) {
		return gorm.ErrDuplicatedKey
	}
	return err
}

func (r *submissionRepository) CreateDetails(ctx context.Context, details []models.SubmissionDetail) error {
	if len(details) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&details).Error
}

func (r *submissionRepository) UpdateDetailScore(ctx context.Context, detail models.SubmissionDetail) error {
	result := r.db.WithContext(ctx).
		Model(&models.SubmissionDetail{}).
		Where("id = ? AND submission_id = ?", detail.ID, detail.SubmissionID).
		Updates(map[string]interface{}{
			"score":    detail.Score,
			"feedback": detail.Feedback,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecalculateTotal re-reads every detail row and stores the sum on the header.
func (r *submissionRepository) RecalculateTotal(ctx context.Context, submissionID uint) (float64, error) {
	var total float64
	if err := r.db.WithContext(ctx).
		Model(&models.SubmissionDetail{}).
		Where("submission_id = ?", submissionID).
		Select("COALESCE(SUM(score), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}

	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", submissionID).
		Update("total_score", total)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	return total, nil
}

func (r *submissionRepository) MarkGraded(ctx context.Context, submissionID, gradedBy uint, gradedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", submissionID).
		Updates(map[string]interface{}{
			"status":    models.SubmissionStatusGraded,
			"graded_at": gradedAt,
			"graded_by": gradedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *submissionRepository) CreateHistory(ctx context.Context, entries []models.SubmissionGradeHistory) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// SubmissionCounts aggregates header rows for one source.
type SubmissionCounts struct {
	Submitted int64
	Graded    int64
}

// RosterRow is one enrolled student with their submission, if any. Submission
// fields are nil for students who have not submitted.
type RosterRow struct {
	StudentID    uint
	StudentName  string
	StudentEmail string
	SubmissionID *uint
	Status       *string
	TotalScore   *float64
	SubmittedAt  *time.Time
	GradedAt     *time.Time
}

// RollupRepository supplies class-level statistics for teacher dashboards.
type RollupRepository interface {
	CountEnrolledStudents(ctx context.Context, kind models.SourceKind, sourceID uint) (int64, error)
	CountSubmissions(ctx context.Context, kind models.SourceKind, sourceID uint) (SubmissionCounts, error)
	ListRoster(ctx context.Context, kind models.SourceKind, sourceID uint) ([]RosterRow, error)
}

type rollupRepository struct {
	db *gorm.DB
}

// NewRollupRepository constructs the rollup repository.
func NewRollupRepository(db *gorm.DB) RollupRepository {
	return &rollupRepository{db: db}
}

// CountEnrolledStudents counts distinct students across every class the
// source was distributed to.
func (r *rollupRepository) CountEnrolledStudents(ctx context.Context, kind models.SourceKind, sourceID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("enrollments").
		Joins("JOIN source_classes ON source_classes.class_id = enrollments.class_id").
		Where("source_classes.source_kind = ? AND source_classes.source_id = ?", kind, sourceID).
		Select("COUNT(DISTINCT enrollments.student_id)").
		Scan(&count).Error
	return count, err
}

func (r *rollupRepository) CountSubmissions(ctx context.Context, kind models.SourceKind, sourceID uint) (SubmissionCounts, error) {
	var counts SubmissionCounts
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("COUNT(*) AS submitted, COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS graded", models.SubmissionStatusGraded).
		Where("source_kind = ? AND source_id = ?", kind, sourceID).
		Scan(&counts).Error
	return counts, err
}

func (r *rollupRepository) ListRoster(ctx context.Context, kind models.SourceKind, sourceID uint) ([]RosterRow, error) {
	var rows []RosterRow
	err := r.db.WithContext(ctx).
		Table("enrollments").
		Select(`DISTINCT students.id AS student_id, students.name AS student_name, students.email AS student_email,
			submissions.id AS submission_id, submissions.status AS status, submissions.total_score AS total_score,
			submissions.submitted_at AS submitted_at, submissions.graded_at AS graded_at`).
		Joins("JOIN source_classes ON source_classes.class_id = enrollments.class_id AND source_classes.source_kind = ? AND source_classes.source_id = ?", kind, sourceID).
		Joins("JOIN students ON students.id = enrollments.student_id").
		Joins("LEFT JOIN submissions ON submissions.student_id = enrollments.student_id AND submissions.source_kind = ? AND submissions.source_id = ?", kind, sourceID).
		Order("students.name ASC, students.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

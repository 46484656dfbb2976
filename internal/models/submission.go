package models

import "time"

const (
	// SubmissionStatusSubmitted indicates the submission has been ingested but not graded by a teacher.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates a teacher has applied grades.
	SubmissionStatusGraded = "graded"
)

// MaxScore is the largest value a numeric(10,2) score column can hold.
const MaxScore = 99999999.99

// Submission is the header row of one student attempt. TotalScore always
// equals the sum of its detail scores once a write has committed.
type Submission struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	StudentID   uint               `gorm:"not null;uniqueIndex:idx_submission_owner" json:"student_id"`
	SourceKind  SourceKind         `gorm:"size:16;not null;uniqueIndex:idx_submission_owner" json:"source_kind"`
	SourceID    uint               `gorm:"not null;uniqueIndex:idx_submission_owner;index" json:"source_id"`
	Status      string             `gorm:"size:32;not null" json:"status"`
	TotalScore  float64            `gorm:"type:numeric(10,2);not null;default:0" json:"total_score"`
	SubmittedAt time.Time          `gorm:"not null" json:"submitted_at"`
	GradedAt    *time.Time         `json:"graded_at"`
	GradedBy    *uint              `json:"graded_by"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Details     []SubmissionDetail `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"details"`
}

// IsGraded reports whether a teacher has graded the submission.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// SubmissionDetail stores one answered item. IsCorrect is only set for
// auto-graded question types.
type SubmissionDetail struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	QuestionID   uint      `gorm:"not null;index" json:"question_id"`
	Answer       string    `gorm:"type:text" json:"answer"`
	IsCorrect    *bool     `json:"is_correct"`
	Score        float64   `gorm:"type:numeric(10,2);not null;default:0" json:"score"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Question     Question  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

// SubmissionGradeHistory records every manual override of a detail score.
type SubmissionGradeHistory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SubmissionID  uint      `gorm:"not null;index" json:"submission_id"`
	DetailID      uint      `gorm:"not null;index" json:"detail_id"`
	PreviousScore float64   `gorm:"type:numeric(10,2);not null" json:"previous_score"`
	Score         float64   `gorm:"type:numeric(10,2);not null" json:"score"`
	GradedBy      uint      `gorm:"not null" json:"graded_by"`
	GradedAt      time.Time `gorm:"not null" json:"graded_at"`
}
